package service

import "errors"

var (
	ErrUnauthorized        = errors.New("administrator capability required")
	ErrInvalidTree         = errors.New("tree name and serial number are required")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrTreeNotFound        = errors.New("tree not found")
	ErrSaplingNotFound     = errors.New("no matching sapling")
	ErrUnavailable         = errors.New("not enough trees available")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInsufficientFunds   = errors.New("insufficient treasury funds")
	ErrQuantityOverflow    = errors.New("tree quantity overflow")
)
