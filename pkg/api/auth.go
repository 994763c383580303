package api

import "time"

// SessionTokenHeader заголовок, в котором клиент передает токен сессии
const SessionTokenHeader = "session-token"

// UserIDHeader заголовок с идентификатором пользователя (только dev mode)
const UserIDHeader = "user-id"

// LoginRequest представляет запрос на вход по PIN и парольной фразе
type LoginRequest struct {
	Pin        string `json:"pin"`        // PIN из 4-6 цифр
	Passphrase string `json:"passphrase"` // парольная фраза 8-256 символов
}

// LoginResponse представляет ответ на успешный вход
type LoginResponse struct {
	ExpiresAt    time.Time `json:"expiresAt"`    // время истечения сессии
	UserID       string    `json:"userId"`       // производный идентификатор пользователя
	SessionToken string    `json:"sessionToken"` // токен сессии (64 hex символа)
}

// LogoutRequest представляет запрос на выход
type LogoutRequest struct {
	SessionToken string `json:"sessionToken"` // токен, который нужно отозвать
}

// LogoutResponse представляет ответ на выход
type LogoutResponse struct {
	Success bool `json:"success"`
}

// LogoutAllResponse представляет ответ на выход со всех устройств
type LogoutAllResponse struct {
	Revoked int `json:"revoked"` // количество отозванных сессий
}

// VerifyResponse представляет ответ на проверку токена
type VerifyResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
