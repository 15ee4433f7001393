package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(models.ContentText, "free viagra now")
	b := Fingerprint(models.ContentText, "free viagra now")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintTrimsTextWhitespace(t *testing.T) {
	a := Fingerprint(models.ContentText, "hello world")
	b := Fingerprint(models.ContentText, "  hello world\n")
	assert.Equal(t, a, b)
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	a := Fingerprint(models.ContentText, "hello")
	b := Fingerprint(models.ContentText, "hello!")
	assert.NotEqual(t, a, b)
}

func TestFingerprintDistinguishesKind(t *testing.T) {
	payload := "aGVsbG8="
	a := Fingerprint(models.ContentText, payload)
	b := Fingerprint(models.ContentImage, payload)
	assert.NotEqual(t, a, b)
}

func TestFingerprintImageNotNormalized(t *testing.T) {
	a := Fingerprint(models.ContentImage, "aGVsbG8=")
	b := Fingerprint(models.ContentImage, " aGVsbG8=")
	assert.NotEqual(t, a, b)
}
