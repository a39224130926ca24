package errors

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/nicetouch/dashboard/internal/errors"
)

type customErr struct{}

func (customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error", apperrors.New(apperrors.ErrCodeAlreadyLinked, "linked"), "already_linked"},
		{"wrapped app error", fmt.Errorf("link: %w", apperrors.New(apperrors.ErrCodeReauthRequired, "x")), "reauth_required"},
		{"custom type", fmt.Errorf("outer: %w", customErr{}), "errors_customerr"},
		{"context", context.Canceled, "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
