package appointment

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Access codes are what patients type to join the call, so the alphabet
// drops 0/O/1/I and lowercase entirely.
const (
	accessCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	accessCodeLength   = 8

	maxCodeAttempts = 10
)

// codeChecker is the slice of the repository the generator needs.
type codeChecker interface {
	AccessCodeExists(ctx context.Context, code string) (bool, error)
}

// CodeGenerator produces unique 8-character appointment access codes,
// retrying on the (rare) collision against existing appointments.
type CodeGenerator struct {
	repo codeChecker
}

func NewCodeGenerator(repo codeChecker) *CodeGenerator {
	return &CodeGenerator{repo: repo}
}

func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := gonanoid.Generate(accessCodeAlphabet, accessCodeLength)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}

		exists, err := g.repo.AccessCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check access code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique access code after %d attempts", maxCodeAttempts)
}
