package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/oapi-codegen/runtime"
)

// pathInt binds a required integer path parameter
func pathInt(c fiber.Ctx, name string) (int, error) {
	var v int

	if err := runtime.BindStyledParameterWithOptions("simple", name, c.Params(name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}

	if v <= 0 {
		return 0, ErrInvalidID
	}

	return v, nil
}

// pathString binds a required string path parameter
func pathString(c fiber.Ctx, name string) (string, error) {
	var v string

	if err := runtime.BindStyledParameterWithOptions("simple", name, c.Params(name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}

	return v, nil
}

// queryString binds a form style query parameter
func queryString(c fiber.Ctx, name string, required bool) (string, error) {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid query string: %s", err))
	}

	var v string
	if err := runtime.BindQueryParameter("form", true, required, name, query, &v); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}

	return v, nil
}

// bindBody validates the request body against schema and decodes it into dest
func (s *Server) bindBody(c fiber.Ctx, schema string, dest any) error {
	body := c.Body()

	if s.validator != nil {
		if err := s.validator.ValidateBody(schema, body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	if len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %s", err))
	}

	return nil
}
