package core

// error_messages.go turns technical errors into short user messages with a
// support code. Both the chat bot and the HTTP API display these.
//
// # Error Codes Reference
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Missing setting: a required credential or identifier is unset
//	         Action: Ask an administrator to check the bot configuration
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Ledger columns: required ledger columns were not found
//	         Action: Check the header row of the ledger sheet
//	SCH002 - Master columns: neither an identifier nor a name column found
//	         Action: Check the header row of the part catalog sheet
//
// # Access Errors (ACC001-ACC099)
//
//	ACC001 - Read failed: the sheet could not be read
//	         Action: Please try again in a few moments
//	ACC002 - Append failed: the movement could not be saved
//	         Action: Start again with /mutasi
//	ACC003 - Empty sheet: the sheet has no header row
//	         Action: Ask an administrator to restore the header row
//	ACC004 - Permission denied: the store rejected the credentials
//	         Action: Ask an administrator to share the sheet with the bot
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid quantity
//	VAL002 - Invalid movement type
//	VAL003 - Invalid condition
//	VAL004 - Empty part identifier
//	VAL010 - Search query too short (HTTP API)
//
// # Request Errors (SYS001-SYS099)
//
//	SYS001 - System busy: too many concurrent store calls
//	SYS002 - Request cancelled
//	SYS003 - Request timeout
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Typed errors are matched first with errors.As. Anything else falls back
// to case-insensitive substring patterns; the first matching pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Detail  string // Optional specifics, e.g. the missing columns
}

var (
	msgConfig = UserMessage{
		Message: "Konfigurasi bot belum lengkap",
		Action:  "Hubungi admin untuk memeriksa konfigurasi",
		Code:    "CFG001",
	}
	msgLedgerSchema = UserMessage{
		Message: "Kolom wajib tidak ditemukan di sheet transaksi",
		Action:  "Periksa baris header sheet transaksi",
		Code:    "SCH001",
	}
	msgMasterSchema = UserMessage{
		Message: "Kolom PartID atau Nama tidak ditemukan di sheet sparepart",
		Action:  "Periksa baris header sheet sparepart",
		Code:    "SCH002",
	}
	msgReadFailed = UserMessage{
		Message: "Sheet tidak dapat dibaca",
		Action:  "Coba lagi beberapa saat lagi",
		Code:    "ACC001",
	}
	msgAppendFailed = UserMessage{
		Message: "Data gagal disimpan",
		Action:  "Ulangi dari awal dengan /mutasi",
		Code:    "ACC002",
	}
	msgEmptySheet = UserMessage{
		Message: "Sheet kosong atau tidak memiliki header",
		Action:  "Hubungi admin untuk memulihkan baris header",
		Code:    "ACC003",
	}
	msgBusy = UserMessage{
		Message: "Sistem sedang sibuk",
		Action:  "Tunggu sebentar lalu coba lagi",
		Code:    "SYS001",
	}
	msgCancelled = UserMessage{
		Message: "Permintaan dibatalkan",
		Action:  "Silakan coba lagi",
		Code:    "SYS002",
	}
	msgTimeout = UserMessage{
		Message: "Permintaan melewati batas waktu",
		Action:  "Silakan coba lagi",
		Code:    "SYS003",
	}
)

var validationMessages = map[Field]UserMessage{
	FieldQuantity: {
		Message: "Jumlah tidak valid",
		Action:  "Masukkan angka bulat lebih dari 0",
		Code:    "VAL001",
	},
	FieldMovement: {
		Message: "Jenis tidak valid",
		Action:  "Pilih salah satu jenis yang tersedia",
		Code:    "VAL002",
	},
	FieldCondition: {
		Message: "Kondisi tidak valid",
		Action:  "Pilih salah satu kondisi yang tersedia",
		Code:    "VAL003",
	},
	FieldPartID: {
		Message: "PartID kosong",
		Action:  "Kirim foto QR atau ketik PartID/Nama",
		Code:    "VAL004",
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that reach MapError without a typed wrapper,
// mostly from store clients. Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "permission",
		msg: UserMessage{
			Message: "Akses ke sheet ditolak",
			Action:  "Hubungi admin untuk membagikan sheet ke akun bot",
			Code:    "ACC004",
		},
	},
	{
		pattern: "forbidden",
		msg: UserMessage{
			Message: "Akses ke sheet ditolak",
			Action:  "Hubungi admin untuk membagikan sheet ke akun bot",
			Code:    "ACC004",
		},
	},
	{pattern: "too many concurrent", msg: msgBusy},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Terlalu banyak permintaan",
			Action:  "Tunggu sebentar sebelum mencoba lagi",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "Terjadi kesalahan yang tidak terduga",
	Action:  "Silakan coba lagi atau hubungi admin",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		cfgErr    *ConfigurationError
		schemaErr *SchemaError
		valErr    *ValidationError
		accErr    *AccessError
	)
	switch {
	case errors.As(err, &cfgErr):
		return msgConfig
	case errors.As(err, &schemaErr):
		msg := msgLedgerSchema
		for _, f := range schemaErr.Missing {
			if f == FieldID || f == FieldName {
				msg = msgMasterSchema
				break
			}
		}
		msg.Detail = schemaErr.MissingNames()
		return msg
	case errors.As(err, &valErr):
		if m, ok := validationMessages[valErr.Field]; ok {
			return m
		}
	case errors.Is(err, ErrBusy):
		return msgBusy
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, ErrEmptySheet):
		return msgEmptySheet
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.As(err, &accErr) {
		if accErr.Op == "append" {
			return msgAppendFailed
		}
		return msgReadFailed
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Kode: XXX). Action", or
// "Message: Detail (Kode: XXX). Action" when the message carries a detail.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	if msg.Detail != "" {
		return fmt.Sprintf("%s: %s (Kode: %s). %s", msg.Message, msg.Detail, msg.Code, msg.Action)
	}
	return fmt.Sprintf("%s (Kode: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
