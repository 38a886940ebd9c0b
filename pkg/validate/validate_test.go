package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"min=18"`
}

func TestValidate(t *testing.T) {
	t.Parallel()
	v := NewCustomValidator()

	tests := []struct {
		name string
		in   signup
		want string
	}{
		{name: "ok", in: signup{Email: "a@b.io", Age: 20}},
		{name: "missing email", in: signup{Age: 20}, want: "email: required"},
		{name: "two fields", in: signup{Email: "nope", Age: 3}, want: "email: email; age: min=18"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(tt.in)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tt.want, Message(err))
		})
	}
}
