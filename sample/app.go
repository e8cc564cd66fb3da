// Package sample is a small HTTP service used as a subject for generated
// test suites. It has arithmetic, date, string and item/user endpoints.
package sample

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2"
)

const (
	maxFactorial = 1000
	dateLayout   = "2006-01-02"
	seededUsers  = 100
)

type Item struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       float64  `json:"price"`
	Tax         *float64 `json:"tax"`
}

type User struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Password string  `json:"password"`
}

var users = seedUsers(seededUsers)

func seedUsers(n int) []User {
	out := make([]User, n)
	for i := range out {
		out[i] = User{
			Username: fmt.Sprintf("user%d", i+1),
			Email:    fmt.Sprintf("user%d@example.com", i+1),
			Password: "password",
		}
	}
	return out
}

// New returns the fiber app with every route registered.
func New() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Get("/", root)
	app.Get("/random-number", randomNumber)

	app.Post("/items/", createItem)
	app.Put("/items/:item_id", updateItem)
	app.Delete("/items/:item_id", deleteItem)

	app.Get("/users/", readUsers)
	app.Post("/users/", createUser)
	app.Put("/users/:username", updateUser)

	app.Get("/date-difference/", dateDifference)
	app.Get("/factorial/:n", factorial)
	app.Get("/prime-factors/:n", primeFactors)

	app.Get("/reverse/", reverse)
	app.Get("/palindrome/", palindrome)
	return app
}

// errorHandler renders every error as {"detail": msg}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}
	return c.Status(code).JSON(fiber.Map{"detail": msg})
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

func root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the sample application!"})
}

func randomNumber(c *fiber.Ctx) error {
	lo := c.QueryInt("min", 0)
	hi := c.QueryInt("max", 100)
	if lo > hi {
		return badRequest("Min cannot be greater than Max")
	}
	return c.JSON(fiber.Map{"random_number": lo + rand.IntN(hi-lo+1)})
}

func parseItem(c *fiber.Ctx) (Item, error) {
	var item Item
	if err := c.BodyParser(&item); err != nil {
		return item, badRequest("Invalid item body")
	}
	if item.Name == "" {
		return item, badRequest("Item name is required")
	}
	return item, nil
}

func createItem(c *fiber.Ctx) error {
	item, err := parseItem(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"item": item})
}

func updateItem(c *fiber.Ctx) error {
	id, err := c.ParamsInt("item_id")
	if err != nil {
		return badRequest("Item id must be an integer")
	}
	item, err := parseItem(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"item_id": id, "item": item})
}

func deleteItem(c *fiber.Ctx) error {
	id, err := c.ParamsInt("item_id")
	if err != nil {
		return badRequest("Item id must be an integer")
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("Item with id %d has been deleted", id)})
}

func readUsers(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 10)
	if skip < 0 || limit < 0 {
		return badRequest("skip and limit must not be negative")
	}
	start := min(skip, len(users))
	end := min(start+limit, len(users))
	return c.JSON(users[start:end])
}

func parseUser(c *fiber.Ctx) (User, error) {
	var user User
	if err := c.BodyParser(&user); err != nil {
		return user, badRequest("Invalid user body")
	}
	if user.Username == "" || user.Email == "" || user.Password == "" {
		return user, badRequest("username, email and password are required")
	}
	return user, nil
}

func createUser(c *fiber.Ctx) error {
	user, err := parseUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}

func updateUser(c *fiber.Ctx) error {
	user, err := parseUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"username": c.Params("username"), "user": user})
}

func dateDifference(c *fiber.Ctx) error {
	d1, err := time.Parse(dateLayout, c.Query("date1"))
	if err != nil {
		return badRequest("date1 must be formatted as YYYY-MM-DD")
	}
	d2, err := time.Parse(dateLayout, c.Query("date2"))
	if err != nil {
		return badRequest("date2 must be formatted as YYYY-MM-DD")
	}
	days := int(d2.Sub(d1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return c.JSON(fiber.Map{"date_difference": days})
}

func factorial(c *fiber.Ctx) error {
	n, err := c.ParamsInt("n")
	if err != nil {
		return badRequest("Number must be an integer")
	}
	if n < 0 {
		return badRequest("Cannot calculate factorial of a negative number")
	}
	if n > maxFactorial {
		return badRequest(fmt.Sprintf("Number must not exceed %d", maxFactorial))
	}
	result := new(big.Int).MulRange(1, int64(n))
	return c.JSON(fiber.Map{"factorial": result})
}

func primeFactors(c *fiber.Ctx) error {
	n, err := c.ParamsInt("n")
	if err != nil {
		return badRequest("Number must be an integer")
	}
	if n <= 0 {
		return badRequest("Number must be greater than 0")
	}
	return c.JSON(fiber.Map{"prime_factors": factorize(n)})
}

func factorize(n int) []int {
	factors := []int{}
	for p := 2; p*p <= n; p++ {
		for n%p == 0 {
			factors = append(factors, p)
			n /= p
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

func reverse(c *fiber.Ctx) error {
	r := []rune(c.Query("text"))
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return c.JSON(fiber.Map{"reversed": string(r)})
}

func palindrome(c *fiber.Ctx) error {
	text := c.Query("text")
	var norm []rune
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			norm = append(norm, unicode.ToLower(r))
		}
	}
	ok := true
	for i, j := 0, len(norm)-1; i < j; i, j = i+1, j-1 {
		if norm[i] != norm[j] {
			ok = false
			break
		}
	}
	return c.JSON(fiber.Map{"text": text, "is_palindrome": ok})
}
