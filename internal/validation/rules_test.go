package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name  string
		tag   string
		value string
		want  bool
	}{
		{"no tag accepts anything", "", "whatever", true},

		{"email ok", TagEmail, "ann.lee@example.com", true},
		{"email trimmed", TagEmail, "  ann@example.org ", true},
		{"email without tld", TagEmail, "ann@example", false},
		{"email short tld", TagEmail, "ann@example.c", false},
		{"email without at", TagEmail, "ann.example.com", false},

		{"phone formatted", TagPhone, "+1 (555) 123-4567", true},
		{"phone plain", TagPhone, "79161234567", true},
		{"phone too short", TagPhone, "12345", false},
		{"phone too long", TagPhone, "1234567890123456", false},
		{"phone letters", TagPhone, "555-CALL-NOW-1", false},

		{"number int", TagNumber, "42", true},
		{"number float", TagNumber, " 3.5 ", true},
		{"number negative", TagNumber, "-7e2", true},
		{"number text", TagNumber, "ten", false},

		{"full name one token", TagFullName, "Ann", false},
		{"full name two tokens", TagFullName, "Ann Lee", false},
		{"full name three tokens", TagFullName, "Ann Marie Lee", true},
		{"full name extra spaces", TagFullName, "  Ann   Marie \t Lee ", true},

		{"username with at", TagTelegramUsername, "@ann", true},
		{"username without at", TagTelegramUsername, "ann", false},

		{"cadastral ok", TagCadastralNumber, "50:21:0010101:123", true},
		{"cadastral no colon", TagCadastralNumber, "5021", false},
		{"cadastral only colons", TagCadastralNumber, ":::", false},
		{"cadastral letters", TagCadastralNumber, "50:AB", false},
		{"cadastral blank", TagCadastralNumber, "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, hint, err := Validate(tt.tag, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Empty(t, hint)
			} else {
				assert.NotEmpty(t, hint)
			}
		})
	}
}

func TestValidate_UnknownTag(t *testing.T) {
	ok, _, err := Validate("zip_code", "12345")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestTags(t *testing.T) {
	tags := Tags()
	assert.Len(t, tags, 6)
	for _, tag := range tags {
		assert.True(t, Known(tag))
		r, ok := Lookup(tag)
		require.True(t, ok)
		assert.Equal(t, tag, r.Tag)
	}
	assert.False(t, Known("postcode"))
}
