// Package unitcode builds tracking codes for physical blood units.
//
// A code looks like BB-<bank>-<group>-<YYYYMMDD>-<XXXX>, where the last part is
// four random base-36 characters. Codes are not guaranteed unique: the caller
// inserts the unit and generates a new code when the store reports a conflict.
package unitcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iurnickita/raktkadi/internal/model"
)

const (
	prefix      = "BB"
	alphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomChars = 4
	dateLayout  = "20060102"
)

type Generator interface {
	Generate(bank string, group model.BloodGroup, collected time.Time) (string, error)
}

type generator struct {
	random io.Reader
}

// NewGenerator returns a generator reading randomness from src.
// A nil src means crypto/rand.
func NewGenerator(src io.Reader) Generator {
	if src == nil {
		src = rand.Reader
	}
	return &generator{random: src}
}

func (g *generator) Generate(bank string, group model.BloodGroup, collected time.Time) (string, error) {
	suffix, err := g.suffix()
	if err != nil {
		return "", fmt.Errorf("unitcode: read random: %w", err)
	}
	return strings.Join([]string{
		prefix,
		BankSegment(bank),
		group.Code(),
		collected.Format(dateLayout),
		suffix,
	}, "-"), nil
}

func (g *generator) suffix() (string, error) {
	buf := make([]byte, randomChars)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		// 252 = 7*36, отбрасываем хвост для равномерного распределения
		for b >= 252 {
			var one [1]byte
			if _, err := io.ReadFull(g.random, one[:]); err != nil {
				return "", err
			}
			b = one[0]
		}
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// BankSegment upper-cases the bank id and keeps only [A-Z0-9].
func BankSegment(bank string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(bank) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "X"
	}
	return sb.String()
}
