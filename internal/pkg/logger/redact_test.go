package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactURL(t *testing.T) {
	assert.Equal(t,
		"https://places.example.com/v1/photo/media?***",
		RedactURL("https://places.example.com/v1/photo/media?maxHeightPx=800&key=AIzaSecret"))
	assert.Equal(t, "https://example.com/a.jpg", RedactURL("https://example.com/a.jpg"))
	assert.Equal(t, "", RedactURL(""))
}

func TestRedactValue(t *testing.T) {
	assert.Equal(t, "https://h/p?***", redactValue("photo_url", "https://h/p?key=x"))
	assert.Equal(t, "***", redactValue("db_password", "hunter2"))
	assert.Equal(t, "plain", redactValue("name", "plain"))
}
