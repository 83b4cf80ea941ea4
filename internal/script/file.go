package script

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/atdrive/internal/domain"
)

// FileCommand is one command line of a catalog file.
type FileCommand struct {
	Text   string `toml:"text" validate:"required,crlf"`
	WaitMs int    `toml:"wait_ms" validate:"gte=0,lte=600000"`
}

// FileScript is one [[script]] table of a catalog file.
type FileScript struct {
	Name     string        `toml:"name" validate:"required,max=64"`
	Commands []FileCommand `toml:"command" validate:"required,min=1,dive"`
}

// File is the on-disk layout of a script catalog:
//
//	[[script]]
//	name = "ping"
//
//	[[script.command]]
//	text = "AT\r\n"
//	wait_ms = 100
type File struct {
	Scripts []FileScript `toml:"script" validate:"dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("crlf", validateCRLF)
	return v
}

// validateCRLF checks that a command line is terminated the way the modem expects.
func validateCRLF(fl validator.FieldLevel) bool {
	return strings.HasSuffix(fl.Field().String(), "\r\n")
}

// LoadFile reads and validates a catalog file.
func LoadFile(path string) (File, error) {
	var f File
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	return ParseFile(b)
}

// ParseFile decodes and validates catalog file contents.
func ParseFile(b []byte) (File, error) {
	var f File
	if err := toml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("parse script catalog: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return f, fmt.Errorf("%w: script catalog: %s", domain.ErrInvalidConfig, describe(err))
	}

	seen := make(map[string]bool, len(f.Scripts))
	for _, s := range f.Scripts {
		n := normalize(s.Name)
		if seen[n] {
			return f, fmt.Errorf("%w: script catalog: duplicate script %q", domain.ErrInvalidConfig, s.Name)
		}
		seen[n] = true
	}
	return f, nil
}

// Register adds every script in f to c.
func (f File) Register(c *Catalog) {
	for _, s := range f.Scripts {
		entries := make([]entry, len(s.Commands))
		for i, cmd := range s.Commands {
			entries[i] = entry{text: cmd.Text, waitMs: cmd.WaitMs}
		}
		c.Add(s.Name, build(entries))
	}
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		field := strings.ToLower(fe.Namespace())
		switch fe.Tag() {
		case "required":
			msgs[i] = field + " is required"
		case "crlf":
			msgs[i] = field + " must end with CRLF"
		case "min":
			msgs[i] = field + " must have at least " + fe.Param() + " entries"
		default:
			msgs[i] = fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
	}
	return strings.Join(msgs, "; ")
}
