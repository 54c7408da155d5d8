package validate

import (
	"testing"

	"github.com/keentechcodes/swapwatch/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	t.Run("rejects empty", func(t *testing.T) {
		_, err := Address("")
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("rejects malformed", func(t *testing.T) {
		_, err := Address("not-an-address")
		require.Error(t, err)
	})

	t.Run("lowercases on success", func(t *testing.T) {
		got, err := Address("0xAbCdEf0123456789AbCdEf0123456789aBcDeF01")
		require.NoError(t, err)
		assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", got)
	})
}

func TestLabel(t *testing.T) {
	t.Run("absent is ok", func(t *testing.T) {
		got, err := Label(nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("whitespace-only collapses to absent", func(t *testing.T) {
		raw := "   "
		got, err := Label(&raw)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("100 chars accepted, 101 rejected", func(t *testing.T) {
		ok := make([]byte, 100)
		for i := range ok {
			ok[i] = 'a'
		}
		okStr := string(ok)
		got, err := Label(&okStr)
		require.NoError(t, err)
		require.NotNil(t, got)

		tooLong := okStr + "a"
		_, err = Label(&tooLong)
		require.Error(t, err)
	})
}

func TestThreshold(t *testing.T) {
	t.Run("absent is ok", func(t *testing.T) {
		got, err := Threshold(nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	cases := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"zero accepted", 0, false},
		{"max accepted", 1_000_000, false},
		{"negative rejected", -1, true},
		{"over max rejected", 1_000_001, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.value
			_, err := Threshold(&v)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestExtensionHours(t *testing.T) {
	t.Run("missing defaults to 24", func(t *testing.T) {
		got, err := ExtensionHours(nil)
		require.NoError(t, err)
		assert.Equal(t, 24, got)
	})

	cases := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"48 accepted", 48, false},
		{"49 rejected", 49, true},
		{"zero rejected", 0, true},
		{"negative rejected", -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.value
			_, err := ExtensionHours(&v)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTelegramWebhook(t *testing.T) {
	t.Run("absent is ok", func(t *testing.T) {
		got, err := TelegramWebhook(nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		raw := "ftp://example.com/webhook"
		_, err := TelegramWebhook(&raw)
		require.Error(t, err)
	})

	t.Run("valid telegram url accepted", func(t *testing.T) {
		raw := "https://api.telegram.org/bot123:abc/sendMessage"
		got, err := TelegramWebhook(&raw)
		require.NoError(t, err)
		require.NotNil(t, got)
	})
}

func TestListLimit(t *testing.T) {
	assert.NoError(t, ListLimit(49))
	assert.Error(t, ListLimit(50))
}

func TestPresenceAbsence(t *testing.T) {
	list := []string{"0xaaa", "0xbbb"}
	assert.NoError(t, NotPresent(list, "0xccc"))
	assert.Error(t, NotPresent(list, "0xaaa"))
	assert.NoError(t, Present(list, "0xaaa"))
	assert.Error(t, Present(list, "0xccc"))
}
