package unitcode

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/raktkadi/internal/model"
)

func TestGenerateDeterministic(t *testing.T) {
	g := NewGenerator(bytes.NewReader([]byte{0, 1, 35, 36}))
	collected := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	code, err := g.Generate("bank-17", model.GroupONegative, collected)
	require.NoError(t, err)
	require.Equal(t, "BB-BANK17-ON-20240101-01Z0", code)
}

func TestGenerateSkipsBiasedBytes(t *testing.T) {
	// 255 выходит за 7*36 и должен быть заменен следующим байтом
	g := NewGenerator(bytes.NewReader([]byte{255, 10, 11, 12, 13}))

	code, err := g.Generate("7", model.GroupABPositive, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "BB-7-ABP-20240309-DABC", code)
}

func TestGenerateRandom(t *testing.T) {
	g := NewGenerator(nil)
	pattern := regexp.MustCompile(`^BB-[A-Z0-9]+-ON-20240101-[0-9A-Z]{4}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := g.Generate("b1", model.GroupONegative, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Regexp(t, pattern, code)
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 1)
}

func TestGenerateShortRandom(t *testing.T) {
	g := NewGenerator(bytes.NewReader([]byte{1, 2}))
	_, err := g.Generate("b1", model.GroupONegative, time.Now())
	require.Error(t, err)
}

func TestBankSegment(t *testing.T) {
	require.Equal(t, "CITYBANK", BankSegment("city bank"))
	require.Equal(t, "X", BankSegment("--"))
}

func TestGenerateLongestBank(t *testing.T) {
	g := NewGenerator(nil)
	code, err := g.Generate(strings.Repeat("a", model.MaxRefLength), model.GroupABNegative, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.LessOrEqual(t, len(code), model.MaxCodeLength)
}
