// Package serdser contains the reusable serialization/deserialization
// logics in order to be used by the resource packages.
package serdser

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/opendsc/opendsc/pkg/core/cerr"
)

// Bind tries to bind the request parameters, from the c context,
// into the req struct, received as an interface.
//
// The b indicates the binding method.
// Use binding.JSON in order to read json data from the body,
// binding.Query in order to read the URL query parameters, binding.Form
// in order to read a urlencoded or multipart form body for requests
// with a body and to read query parameters for GET requests,
// binding.Uri in order to read the path parameters.
func Bind(c *gin.Context, req any, b binding.Binding) bool {
	switch err := c.ShouldBindWith(req, b).(type) {
	case *validator.InvalidValidationError:
		c.JSON(http.StatusInternalServerError, errBody{Code: "InternalError", Message: err.Error()})
	case validator.ValidationErrors:
		var nameToErrs map[string][]string
		for _, ferr := range err {
			AddErr(&nameToErrs, ferr.Field(), ferr.Error())
		}
		SerValidationErrs(c, nameToErrs)
	default:
		if err == nil {
			return true
		}
		c.JSON(http.StatusBadRequest, errBody{Code: cerr.KindValidation, Message: err.Error()})
	}
	return false
}

// AddErr adds the msgs error strings for the name field into the
// given errs map (instantiating it, if errs is nil yet).
func AddErr(errs *map[string][]string, name string, msgs ...string) {
	if (*errs) == nil {
		*errs = make(map[string][]string)
	}
	if elist, ok := (*errs)[name]; !ok {
		(*errs)[name] = msgs
	} else {
		(*errs)[name] = append(elist, msgs...)
	}
}

// Assert ensures that ok is true, and it was false, the name and msgs
// will be added to the errs map using the AddErr function.
func Assert(errs *map[string][]string, ok bool, name string, msgs ...string) bool {
	if ok {
		return true
	}
	AddErr(errs, name, msgs...)
	return false
}

// errBody is the {code, message, details?} JSON shape every error
// response renders, regardless of transport.
type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// SerErr serializes the err error and transmits it as a {code,
// message, details?} JSON object. If err is a *cerr.Error, its Kind
// becomes code and its HTTPStatusCode drives the response status.
// Otherwise a 500 response with code "InternalError" is sent.
func SerErr(c *gin.Context, err error) {
	var ce *cerr.Error
	if errors.As(err, &ce) {
		c.JSON(ce.HTTPStatusCode, errBody{Code: ce.Kind, Message: ce.Err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, errBody{Code: "InternalError", Message: err.Error()})
}

// SerValidationErrs renders a map of field name to validation messages
// as a {code, message, details} body with KindValidation's code,
// matching SerErr's shape for handler-level validation failures that
// never reach a *cerr.Error (e.g. malformed multipart input).
func SerValidationErrs(c *gin.Context, errs map[string][]string) {
	c.JSON(http.StatusBadRequest, errBody{
		Code:    cerr.KindValidation,
		Message: "request validation failed",
		Details: errs,
	})
}
