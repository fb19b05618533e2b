package paperdoc

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	sealMagic      = "PAPERLIKE_SEALED"
	sealVersionV1  = uint16(1)
	sealFlagComp   = uint16(1 << 0)
	sealFlagEnc    = uint16(1 << 1)
	sealSaltSize   = 16
	sealNonceSize  = 12
	sealHeaderSize = len(sealMagic) + 2 + 2 + sealSaltSize + sealNonceSize + 8
	kdfIterations  = 200000
)

var (
	ErrPasswordRequired = errors.New("paperdoc: password required")
	ErrInvalidPassword  = errors.New("paperdoc: invalid password")
	ErrInvalidEnvelope  = errors.New("paperdoc: invalid sealed envelope")
)

type SealOptions struct {
	Compress bool
	Password string
}

type EnvelopeInfo struct {
	Sealed     bool
	Compressed bool
	Encrypted  bool
	Version    uint16
}

// envelopeHeader mirrors the fixed-size prefix of a sealed payload.
type envelopeHeader struct {
	version uint16
	flags   uint16
	salt    [sealSaltSize]byte
	nonce   [sealNonceSize]byte
	length  uint64
}

func (h envelopeHeader) marshal() []byte {
	out := make([]byte, 0, sealHeaderSize)
	out = append(out, sealMagic...)
	out = binary.LittleEndian.AppendUint16(out, h.version)
	out = binary.LittleEndian.AppendUint16(out, h.flags)
	out = append(out, h.salt[:]...)
	out = append(out, h.nonce[:]...)
	out = binary.LittleEndian.AppendUint64(out, h.length)
	return out
}

func parseEnvelopeHeader(b []byte) (envelopeHeader, error) {
	var h envelopeHeader
	if !IsSealed(b) || len(b) < sealHeaderSize {
		return h, ErrInvalidEnvelope
	}
	off := len(sealMagic)
	h.version = binary.LittleEndian.Uint16(b[off:])
	off += 2
	h.flags = binary.LittleEndian.Uint16(b[off:])
	off += 2
	off += copy(h.salt[:], b[off:])
	off += copy(h.nonce[:], b[off:])
	h.length = binary.LittleEndian.Uint64(b[off:])
	if h.version != sealVersionV1 {
		return h, fmt.Errorf("%w: version %d", ErrInvalidEnvelope, h.version)
	}
	return h, nil
}

func IsSealed(b []byte) bool {
	return len(b) >= len(sealMagic) && string(b[:len(sealMagic)]) == sealMagic
}

func InspectEnvelope(b []byte) (EnvelopeInfo, error) {
	if !IsSealed(b) {
		return EnvelopeInfo{}, nil
	}
	h, err := parseEnvelopeHeader(b)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return EnvelopeInfo{
		Sealed:     true,
		Compressed: h.flags&sealFlagComp != 0,
		Encrypted:  h.flags&sealFlagEnc != 0,
		Version:    h.version,
	}, nil
}

// Seal wraps a serialized document, optionally compressing it with zlib and
// encrypting it with AES-256-GCM under a pbkdf2-derived key.
func Seal(payload []byte, opts SealOptions) ([]byte, error) {
	h := envelopeHeader{version: sealVersionV1}
	var err error
	if opts.Compress {
		h.flags |= sealFlagComp
		if payload, err = compressBytes(payload); err != nil {
			return nil, err
		}
	}
	if opts.Password != "" {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, ErrPasswordRequired
		}
		h.flags |= sealFlagEnc
		if _, err := io.ReadFull(rand.Reader, h.salt[:]); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand.Reader, h.nonce[:]); err != nil {
			return nil, err
		}
		gcm, err := newGCM(opts.Password, h.salt[:])
		if err != nil {
			return nil, err
		}
		payload = gcm.Seal(nil, h.nonce[:], payload, nil)
	}
	h.length = uint64(len(payload))
	return append(h.marshal(), payload...), nil
}

func Unseal(b []byte, password string) ([]byte, error) {
	h, err := parseEnvelopeHeader(b)
	if err != nil {
		return nil, err
	}
	if uint64(len(b)-sealHeaderSize) != h.length {
		return nil, ErrInvalidEnvelope
	}
	payload := b[sealHeaderSize:]

	if h.flags&sealFlagEnc != 0 {
		if strings.TrimSpace(password) == "" {
			return nil, ErrPasswordRequired
		}
		gcm, err := newGCM(password, h.salt[:])
		if err != nil {
			return nil, err
		}
		payload, err = gcm.Open(nil, h.nonce[:], payload, nil)
		if err != nil {
			return nil, ErrInvalidPassword
		}
	}
	if h.flags&sealFlagComp != 0 {
		if payload, err = decompressBytes(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
	}
	return payload, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func compressBytes(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBytes(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
