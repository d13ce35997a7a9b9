package reset

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateToken returns "<uuid v4>-<unix millis base36>-<9 random base36 chars>".
func generateToken(now time.Time) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	suffix, err := randomBase36(9)
	if err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	return id.String() + "-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + suffix, nil
}

// randomBase36 draws n uniform base36 characters from crypto/rand.
func randomBase36(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 252 = 7*36; rejecting the tail keeps the draw unbiased
			if b < 252 && len(out) < n {
				out = append(out, base36[b%36])
			}
		}
	}
	return string(out), nil
}
