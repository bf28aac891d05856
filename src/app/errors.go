package app

import "errors"

var (
	ErrMissingAPIKey   = errors.New("API key is not configured")
	ErrVoiceDisabled   = errors.New("voice input requires an ElevenLabs API key")
	ErrDuplicateMedia  = errors.New("this recording was already processed")
	ErrUnsupportedFile = errors.New("unsupported image type")
	ErrEmptyInput      = errors.New("input is empty")
)
