package token

import (
	"crypto/rand"
	"fmt"
)

const (
	refreshAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// RefreshLength - длина refresh-токена в символах.
	RefreshLength = 32
	// Наибольшее кратное длине алфавита, не превышающее 256.
	// Байты >= refreshCutoff отбрасываются, иначе распределение смещено.
	refreshCutoff = 256 - 256%len(refreshAlphabet)
)

// NewRefreshToken возвращает 32 символа из [A-Za-z0-9], равномерно
// выбранных из crypto/rand.
func NewRefreshToken() (string, error) {
	const op = "token.NewRefreshToken"

	out := make([]byte, 0, RefreshLength)
	buf := make([]byte, RefreshLength*2)

	for len(out) < RefreshLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		for _, b := range buf {
			if int(b) >= refreshCutoff {
				continue
			}
			out = append(out, refreshAlphabet[int(b)%len(refreshAlphabet)])
			if len(out) == RefreshLength {
				break
			}
		}
	}

	return string(out), nil
}

// ValidRefreshToken проверяет форму токена. Вызывается до любых обращений
// к хранилищу, поэтому glob-символы до шаблона SCAN не доходят.
func ValidRefreshToken(s string) bool {
	if len(s) != RefreshLength {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return true
}
