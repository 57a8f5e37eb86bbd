package policy

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tvpanel/tvpanel/internal/schema"
)

// Client validation messages, in the order they are reported.
const (
	MsgUsernameRequired = "Nazwa użytkownika jest wymagana"
	MsgUsernameTooShort = "Nazwa użytkownika musi mieć co najmniej 3 znaki"
	MsgPasswordRequired = "Hasło jest wymagane"
	MsgPasswordTooShort = "Hasło musi mieć co najmniej 4 znaki"
	MsgExpDateRequired  = "Data wygaśnięcia jest wymagana"
	MsgExpDateInvalid   = "Nieprawidłowy format daty"
	MsgConnectionsRange = "Maksymalna liczba połączeń musi być między 1 a 100"
)

// ValidationError lists every failed client check.
type ValidationError struct {
	Messages []string
}

// Error joins the messages the way the panel displays them.
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// ClientInput is the raw create-client form.
type ClientInput struct {
	Username       string
	Password       string
	IsTrial        string
	ExpDate        string
	MaxConnections string
	Bouquet        string
	Notes          string
}

// NewClient is a validated create-client request.
type NewClient struct {
	Username       string
	Password       string
	IsTrial        bool
	ExpDate        time.Time
	MaxConnections int
	Bouquet        string
	Notes          string
}

// ValidateNewClient checks a create-client form. Uniqueness is not checked here.
func ValidateNewClient(in ClientInput) (NewClient, error) {
	out := NewClient{
		Username: strings.TrimSpace(in.Username),
		Password: strings.TrimSpace(in.Password),
		Bouquet:  strings.TrimSpace(in.Bouquet),
		Notes:    strings.TrimSpace(in.Notes),
	}
	var msgs []string

	switch {
	case out.Username == "":
		msgs = append(msgs, MsgUsernameRequired)
	case utf8.RuneCountInString(out.Username) < schema.MinUsernameLength:
		msgs = append(msgs, MsgUsernameTooShort)
	}

	switch {
	case out.Password == "":
		msgs = append(msgs, MsgPasswordRequired)
	case utf8.RuneCountInString(out.Password) < schema.MinPasswordLength:
		msgs = append(msgs, MsgPasswordTooShort)
	}

	expDate := strings.TrimSpace(in.ExpDate)
	if expDate == "" {
		msgs = append(msgs, MsgExpDateRequired)
	} else if d, ok := ParseDate(expDate); ok {
		out.ExpDate = d
	} else {
		msgs = append(msgs, MsgExpDateInvalid)
	}

	out.MaxConnections = schema.MinConnections
	if raw := strings.TrimSpace(in.MaxConnections); raw != "" {
		n, errParse := strconv.Atoi(raw)
		if errParse != nil {
			n = 0
		}
		out.MaxConnections = n
	}
	if out.MaxConnections < schema.MinConnections || out.MaxConnections > schema.MaxConnections {
		msgs = append(msgs, MsgConnectionsRange)
	}

	// Checkboxes post "on"; any unrecognised non-empty value counts as checked.
	if raw := strings.TrimSpace(in.IsTrial); raw != "" {
		if b, ok := ParseBool(raw); ok {
			out.IsTrial = b
		} else {
			out.IsTrial = true
		}
	}

	if len(msgs) > 0 {
		return NewClient{}, &ValidationError{Messages: msgs}
	}
	return out, nil
}
