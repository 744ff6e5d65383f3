// Package session keeps the registered users of the running process.
package session

import (
	"strings"
	"time"
)

// Role of a registered user. The zero value means unset.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Subgroup values.
const (
	SubgroupFirst  = "1"
	SubgroupSecond = "2"
	SubgroupAll    = "all"
)

// Record is one registered user.
type Record struct {
	Role     Role
	Name     string
	Group    string
	Subgroup string
	// TeacherID is empty for teachers restored from a backend record that does not carry it.
	TeacherID    string
	ChatID       int64
	Username     string
	RegisteredAt time.Time
}

// Complete reports whether r is fully populated for its role.
func (r Record) Complete() bool {
	if strings.TrimSpace(r.Name) == "" {
		return false
	}
	switch r.Role {
	case RoleStudent:
		return r.Group != "" && ValidSubgroup(r.Subgroup)
	case RoleTeacher:
		return true
	}
	return false
}

// ValidSubgroup reports whether s is one of the subgroup values.
func ValidSubgroup(s string) bool {
	return s == SubgroupFirst || s == SubgroupSecond || s == SubgroupAll
}

// Store maps platform user ids to records. Lock serializes read-modify-write
// sequences of one user; it never blocks other users.
type Store interface {
	Get(userID int64) (Record, bool)
	// Put stores rec and reports whether it was accepted. Incomplete records are rejected.
	Put(userID int64, rec Record) bool
	Delete(userID int64)
	Lock(userID int64) (unlock func())
}
