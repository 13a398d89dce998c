package model

// Actor — аутентифицированный участник запроса (данные отдаёт сервис авторизации).
// Role хранится строкой как пришла: проверка допустимых ролей — забота чата.
type Actor struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}
