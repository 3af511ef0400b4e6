package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
)

const (
	// Ambiguous glyphs (0/O, 1/I/L) are left out.
	referenceAlphabet     = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	maxReferenceAttempts  = 10
	reservationNumberSeq  = "reservation_number_seq"
	defaultNumberPrefix   = "RES"
	defaultNumberDigits   = 6
	defaultReferenceChars = 8
)

// IdentifierGenerator issues human-facing reservation numbers and
// reference codes. Both are drawn inside the caller's unit of work so that
// uniqueness checks see the caller's own uncommitted rows.
type IdentifierGenerator struct {
	prefix     string
	digits     int
	codeLength int
	random     io.Reader
	now        func() time.Time
}

func NewIdentifierGenerator(prefix string, digits, codeLength int) *IdentifierGenerator {
	if prefix == "" {
		prefix = defaultNumberPrefix
	}
	if digits <= 0 {
		digits = defaultNumberDigits
	}
	if codeLength <= 0 {
		codeLength = defaultReferenceChars
	}
	return &IdentifierGenerator{
		prefix:     prefix,
		digits:     digits,
		codeLength: codeLength,
		random:     rand.Reader,
		now:        time.Now,
	}
}

// NextReservationNumber returns prefix + zero-padded counter. The counter
// comes from the database sequence when provisioned, otherwise from the
// highest existing number. A number already taken is bumped once.
func (g *IdentifierGenerator) NextReservationNumber(ctx context.Context, uow repository.UnitOfWork) (string, error) {
	n, err := uow.Sequences().Next(ctx, reservationNumberSeq)
	if errors.Is(err, repository.ErrSequenceUnavailable) {
		logger.DebugContext(ctx, "Reservation sequence unavailable, scanning existing numbers")
		n, err = g.scanNext(ctx, uow)
	}
	if err != nil {
		return "", fmt.Errorf("next reservation number: %w", err)
	}

	candidate := g.formatNumber(n)
	exists, err := uow.Reservations().NumberExists(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("check reservation number: %w", err)
	}
	if exists {
		logger.WarnContext(ctx, "Reservation number already taken, bumping", "number", candidate)
		candidate = g.formatNumber(n + 1)
	}
	return candidate, nil
}

func (g *IdentifierGenerator) scanNext(ctx context.Context, uow repository.UnitOfWork) (int64, error) {
	numbers, err := uow.Reservations().ListNumbersWithPrefix(ctx, g.prefix)
	if err != nil {
		return 0, err
	}
	var highest int64
	for _, num := range numbers {
		v, err := strconv.ParseInt(strings.TrimPrefix(num, g.prefix), 10, 64)
		if err != nil {
			continue
		}
		if v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}

func (g *IdentifierGenerator) formatNumber(n int64) string {
	return fmt.Sprintf("%s%0*d", g.prefix, g.digits, n)
}

// NewReferenceCode draws random codes until one is unused, treating codes
// in pending as taken. After maxReferenceAttempts collisions it derives a
// longer code from the clock.
func (g *IdentifierGenerator) NewReferenceCode(ctx context.Context, uow repository.UnitOfWork, pending ...string) (string, error) {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		code, err := g.randomCode(g.codeLength)
		if err != nil {
			return "", fmt.Errorf("generate reference code: %w", err)
		}
		if slices.Contains(pending, code) {
			continue
		}
		inUse, err := uow.Reservations().CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check reference code: %w", err)
		}
		if !inUse {
			return code, nil
		}
		logger.DebugContext(ctx, "Reference code collision", "attempt", attempt)
	}

	code := g.fallbackCode()
	logger.WarnContext(ctx, "Reference code attempts exhausted, using clock-derived code", "code", code)
	return code, nil
}

func (g *IdentifierGenerator) randomCode(length int) (string, error) {
	radix := big.NewInt(int64(len(referenceAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := rand.Int(g.random, radix)
		if err != nil {
			return "", err
		}
		b.WriteByte(referenceAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

func (g *IdentifierGenerator) fallbackCode() string {
	seed := make([]byte, 16)
	binary.BigEndian.PutUint64(seed, uint64(g.now().UnixNano()))
	// Salt is best effort; the clock alone still separates calls.
	_, _ = io.ReadFull(g.random, seed[8:])

	sum := sha256.Sum256(seed)
	length := g.codeLength + 2
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = referenceAlphabet[int(sum[i])%len(referenceAlphabet)]
	}
	return string(out)
}
