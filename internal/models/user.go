package models

// UserProfile представляет профиль пользователя, как его возвращает /user/profile
type UserProfile struct {
	UserID      int64     `json:"userId"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	RealName    string    `json:"realName,omitempty"`
	SchoolID    string    `json:"schoolId,omitempty"`
	CreditScore int       `json:"creditScore"`
	CreatedAt   LocalTime `json:"created_at"`

	// Токен приходит только в ответе на вход и не кэшируется вместе с профилем
	Token string `json:"token,omitempty"`
}

// WithoutToken возвращает копию профиля без учетных данных
func (p UserProfile) WithoutToken() UserProfile {
	p.Token = ""
	return p
}

// LoginRequest представляет данные для входа
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest представляет данные для регистрации
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	RealName    string `json:"realName,omitempty"`
	SchoolID    string `json:"schoolId,omitempty"`
}

// ProfileUpdate представляет изменяемые поля профиля
type ProfileUpdate struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	RealName    string `json:"realName,omitempty"`
}

// IdentityVerification представляет запрос на подтверждение личности студента
type IdentityVerification struct {
	RealName string `json:"realName"`
	SchoolID string `json:"schoolId"`
}

// PasswordReset представляет запрос на сброс пароля
type PasswordReset struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}
