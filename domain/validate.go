package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen  = 255
	maxNotesLen = 4096
)

// ValidateName checks a board or column display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidArgument, maxNameLen)
	}
	return nil
}

// ValidateTitle checks a task title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(title) > maxNameLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidArgument, maxNameLen)
	}
	return nil
}

// ValidateNotes checks free-form task notes.
func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidArgument, maxNotesLen)
	}
	return nil
}

// ValidateMemberRole checks a role assignable to a board member. Ownership is
// recorded on the board itself and cannot be granted through membership.
func ValidateMemberRole(role Role) error {
	if role != RoleEditor && role != RoleViewer {
		return fmt.Errorf("%w: role must be %q or %q", ErrInvalidArgument, RoleEditor, RoleViewer)
	}
	return nil
}
