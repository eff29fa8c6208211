package user

import "github.com/rajivgeraev/campus-market/internal/models"

// CreditStatus - уровень доверия по кредитному баллу
type CreditStatus string

const (
	CreditGood CreditStatus = "good"
	CreditFair CreditStatus = "fair"
	CreditPoor CreditStatus = "poor"
)

// DefaultBanThreshold - балл, ниже которого аккаунт считается заблокированным
const DefaultBanThreshold = 60

// Label возвращает подпись для интерфейса
func (s CreditStatus) Label() string {
	switch s {
	case CreditGood:
		return "信用良好"
	case CreditFair:
		return "信用一般"
	default:
		return "信用较差"
	}
}

// Credit определяет уровень по баллу: от 80 хороший, от 60 средний
func Credit(score int) CreditStatus {
	switch {
	case score >= 80:
		return CreditGood
	case score >= 60:
		return CreditFair
	default:
		return CreditPoor
	}
}

// Banned сообщает, заблокирован ли пользователь
func Banned(profile *models.UserProfile, threshold int) bool {
	if profile == nil {
		return false
	}
	return profile.CreditScore < threshold
}

// SellerProfile - профиль продавца с последними объявлениями
type SellerProfile struct {
	Profile     *models.UserProfile        `json:"profile"`
	Credit      CreditStatus               `json:"credit"`
	CreditLabel string                     `json:"creditLabel"`
	RecentGoods *models.Page[models.Goods] `json:"recentGoods"`
}
