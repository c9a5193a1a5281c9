package models

import "fmt"

// TransitionError is returned when a status change is not allowed.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// User

type UserStatus string

const (
	UserPending   UserStatus = "pending"
	UserActivated UserStatus = "activated"
	UserBlocked   UserStatus = "blocked"
	UserDeleted   UserStatus = "deleted"
)

var userTransitions = transitions[UserStatus]{
	UserPending:   {UserActivated, UserDeleted},
	UserActivated: {UserBlocked, UserDeleted},
	UserBlocked:   {UserActivated, UserDeleted},
}

func (s UserStatus) Valid() bool {
	switch s {
	case UserPending, UserActivated, UserBlocked, UserDeleted:
		return true
	}
	return false
}

func (s UserStatus) CanTransition(to UserStatus) bool {
	return s == to || userTransitions.allows(s, to)
}

// OTP trace

type OtpStatus string

const (
	OtpPending  OtpStatus = "pending"
	OtpVerified OtpStatus = "verified"
	OtpExpired  OtpStatus = "expired"
)

var otpTransitions = transitions[OtpStatus]{
	OtpPending: {OtpVerified, OtpExpired},
}

func (s OtpStatus) CanTransition(to OtpStatus) bool {
	return otpTransitions.allows(s, to)
}

// Product

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductExpired  ProductStatus = "expired"
)

var productTransitions = transitions[ProductStatus]{
	ProductActive:   {ProductExpired, ProductInactive},
	ProductInactive: {ProductActive},
}

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductActive, ProductInactive, ProductExpired:
		return true
	}
	return false
}

func (s ProductStatus) CanTransition(to ProductStatus) bool {
	return s == to || productTransitions.allows(s, to)
}

// Message

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageSeen      MessageStatus = "seen"
	MessageDeleted   MessageStatus = "deleted"
)

var messageTransitions = transitions[MessageStatus]{
	MessageSent:      {MessageDelivered, MessageSeen, MessageDeleted},
	MessageDelivered: {MessageSeen, MessageDeleted},
	MessageSeen:      {MessageDeleted},
}

func (s MessageStatus) CanTransition(to MessageStatus) bool {
	return messageTransitions.allows(s, to)
}

// Contact

type ContactStatus string

const (
	ContactSent     ContactStatus = "sent"
	ContactReceived ContactStatus = "received"
	ContactActive   ContactStatus = "active"
	ContactBlocked  ContactStatus = "blocked"
)

var contactTransitions = transitions[ContactStatus]{
	ContactSent:     {ContactActive},
	ContactReceived: {ContactActive},
	ContactActive:   {ContactBlocked},
	ContactBlocked:  {ContactActive},
}

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactSent, ContactReceived, ContactActive, ContactBlocked:
		return true
	}
	return false
}

func (s ContactStatus) CanTransition(to ContactStatus) bool {
	return contactTransitions.allows(s, to)
}

// CheckTransition validates a move for any of the closed status types.
func CheckTransition[S ~string](entity string, from, to S) error {
	var ok bool
	switch f := any(from).(type) {
	case UserStatus:
		ok = f.CanTransition(any(to).(UserStatus))
	case OtpStatus:
		ok = f.CanTransition(any(to).(OtpStatus))
	case ProductStatus:
		ok = f.CanTransition(any(to).(ProductStatus))
	case MessageStatus:
		ok = f.CanTransition(any(to).(MessageStatus))
	case ContactStatus:
		ok = f.CanTransition(any(to).(ContactStatus))
	default:
		return fmt.Errorf("no transition table for %T", from)
	}
	if !ok {
		return &TransitionError{Entity: entity, From: string(from), To: string(to)}
	}
	return nil
}
