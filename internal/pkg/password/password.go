// password хэширует и проверяет пароли с помощью argon2id.
//
// Хэш самоописывающий (PHC-формат), поэтому для проверки не нужны ни соль,
// ни параметры со стороны:
//
//	$argon2id$v=19$m=<KiB>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Verify никогда не возвращает ошибку: несовпадение и битый хэш для
// вызывающего неразличимы, чтобы не давать оракула.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithm = "argon2id"

// Params - стоимость argon2id. MemoryKiB задаётся в KiB, как ждёт argon2.IDKey.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams - базовые параметры для интерактивного входа.
func DefaultParams() Params {
	return Params{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher хэширует пароли с фиксированными параметрами.
// Нулевые поля Params заменяются значениями по умолчанию.
type Hasher struct {
	params Params
}

// New создаёт Hasher.
func New(p Params) *Hasher {
	def := DefaultParams()
	if p.MemoryKiB == 0 {
		p.MemoryKiB = def.MemoryKiB
	}
	if p.Iterations == 0 {
		p.Iterations = def.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = def.Parallelism
	}
	if p.SaltLength == 0 {
		p.SaltLength = def.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = def.KeyLength
	}

	return &Hasher{params: p}
}

// Hash возвращает закодированный argon2id-хэш со свежей солью.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "pkg.password.Hash"

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: salt: %w", op, err)
	}

	key := argon2.IDKey([]byte(password), salt,
		h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm, argon2.Version,
		h.params.MemoryKiB, h.params.Iterations, h.params.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify сообщает, соответствует ли пароль хэшу.
// Битый, неподдерживаемый или слишком «дорогой» хэш даёт false.
func (h *Hasher) Verify(password, encoded string) bool {
	p, salt, want, ok := decode(encoded)
	if !ok || !h.withinBounds(p) {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)

	return subtle.ConstantTimeCompare(got, want) == 1
}

// withinBounds не даёт подсунутому хэшу заставить сервер считать
// argon2 с параметрами, сильно превышающими настроенные.
func (h *Hasher) withinBounds(p Params) bool {
	switch {
	case p.MemoryKiB > h.params.MemoryKiB*2,
		p.Iterations > h.params.Iterations*2,
		uint32(p.Parallelism) > uint32(h.params.Parallelism)*2:
		return false
	case p.SaltLength < 8 || p.SaltLength > 64:
		return false
	case p.KeyLength < 16 || p.KeyLength > 128:
		return false
	}

	return true
}

func decode(encoded string) (Params, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithm {
		return Params{}, nil, nil, false
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Params{}, nil, nil, false
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Params{}, nil, nil, false
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Params{}, nil, nil, false
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, false
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, false
	}

	return Params{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}, salt, key, true
}
