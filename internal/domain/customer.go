package domain

import "strings"

type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// Validate requires a non-blank name and email. Phone is optional.
func (c CustomerInfo) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "Please enter your name"}
	}
	if strings.TrimSpace(c.Email) == "" {
		return &ValidationError{Field: "email", Message: "Please enter your email"}
	}
	return nil
}

// Normalized returns a copy with surrounding whitespace removed.
func (c CustomerInfo) Normalized() CustomerInfo {
	return CustomerInfo{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}
