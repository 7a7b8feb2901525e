package models

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/ayush/task-manager-api/internal/apperr"
)

const (
	MinNameLen     = 2
	MaxNameLen     = 50
	MinPasswordLen = 6
	MaxTitleLen    = 100
)

// NormalizeEmail trims and lower-cases an address; emails are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare address whose domain has at least two labels.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	domain := email[strings.LastIndexByte(email, '@')+1:]
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return false
		}
	}
	return strings.Contains(domain, ".")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Validate trims and normalises the request, then checks it.
func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)

	switch {
	case r.Name == "":
		return apperr.Invalid("Name is required")
	case runeLen(r.Name) < MinNameLen:
		return apperr.Invalid("Name must be at least 2 characters long")
	case r.Email == "":
		return apperr.Invalid("Email is required")
	case !validEmail(r.Email):
		return apperr.Invalid("Email must be a valid email address")
	case r.Password == "":
		return apperr.Invalid("Password is required")
	case runeLen(r.Password) < MinPasswordLen:
		return apperr.Invalid("Password must be at least 6 characters long")
	}
	return nil
}

func (r *LoginRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)

	switch {
	case r.Email == "":
		return apperr.Invalid("Email is required")
	case !validEmail(r.Email):
		return apperr.Invalid("Email must be valid")
	case r.Password == "":
		return apperr.Invalid("Password is required")
	case runeLen(r.Password) < MinPasswordLen:
		return apperr.Invalid("Password must be at least 6 characters long")
	}
	return nil
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Name == nil && r.Email == nil && r.Password == nil {
		return apperr.Invalid("At least one field must be provided")
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if runeLen(name) < MinNameLen {
			return apperr.Invalid("Name must be at least 2 characters")
		}
		if runeLen(name) > MaxNameLen {
			return apperr.Invalid("Name must be at most 50 characters")
		}
		r.Name = &name
	}
	if r.Email != nil {
		email := NormalizeEmail(*r.Email)
		if !validEmail(email) {
			return apperr.Invalid("Email must be a valid email address")
		}
		r.Email = &email
	}
	if r.Password != nil && runeLen(*r.Password) < MinPasswordLen {
		return apperr.Invalid("Password must be at least 6 characters")
	}
	return nil
}

func (r *UpdateProfileRequest) FieldTypeMessage(field string) string {
	switch field {
	case "name":
		return "Name must be a string"
	case "email":
		return "Email must be a string"
	case "password":
		return "Password must be a string"
	}
	return ""
}

// checkTitle trims *title in place.
func checkTitle(title *string, emptyMsg, tooLongMsg string) error {
	*title = strings.TrimSpace(*title)
	if *title == "" {
		return apperr.Invalid(emptyMsg)
	}
	if runeLen(*title) > MaxTitleLen {
		return apperr.Invalid(tooLongMsg)
	}
	return nil
}

func (r *CreateTaskRequest) Validate() error {
	if r.Title == nil {
		return apperr.Invalid("Title is required")
	}
	return checkTitle(r.Title, "Title is required", "Title must be at most 100 characters")
}

func (r *ReplaceTaskRequest) Validate() error {
	if r.Title == nil {
		return apperr.Invalid("Title is required")
	}
	if err := checkTitle(r.Title, "Title is required", "Title must be at most 100 characters"); err != nil {
		return err
	}
	if r.Completed == nil {
		return apperr.Invalid("Completed is required")
	}
	return nil
}

func (r *PatchTaskRequest) Validate() error {
	if r.Title == nil && r.Completed == nil {
		return apperr.Invalid("At least one of title or completed must be provided")
	}
	if r.Title != nil {
		return checkTitle(r.Title, "Title must not be empty", "Title must be less than 100 characters")
	}
	return nil
}

func (r *CreateTaskRequest) FieldTypeMessage(field string) string  { return taskFieldMessage(field) }
func (r *ReplaceTaskRequest) FieldTypeMessage(field string) string { return taskFieldMessage(field) }
func (r *PatchTaskRequest) FieldTypeMessage(field string) string   { return taskFieldMessage(field) }

func taskFieldMessage(field string) string {
	switch field {
	case "title":
		return "Title must be a string"
	case "completed":
		return "Completed must be true or false"
	}
	return ""
}

// Update converts a validated replace request into a store update.
func (r *ReplaceTaskRequest) Update() TaskUpdate {
	return TaskUpdate{Title: r.Title, Completed: r.Completed}
}

// Update converts a validated patch request into a store update.
func (r *PatchTaskRequest) Update() TaskUpdate {
	return TaskUpdate{Title: r.Title, Completed: r.Completed}
}
