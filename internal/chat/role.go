package chat

import "github.com/barbershop/internal/model"

// Authorize пропускает только клиентов и владельцев салонов. Пустая роль — нет сессии.
func Authorize(role string) (model.Role, error) {
	switch role {
	case string(model.RoleCustomer):
		return model.RoleCustomer, nil
	case string(model.RoleOwner):
		return model.RoleOwner, nil
	case "":
		return "", NewError(CodeUnauthorized, "no authenticated actor", nil)
	}
	return "", NewError(CodeForbidden, "role "+role+" may not use chat", nil)
}

// NormalizeRole приводит сохранённую роль к customer/owner; содержимому файлов не доверяем.
func NormalizeRole(r model.Role) model.Role {
	if r == model.RoleOwner {
		return model.RoleOwner
	}
	return model.RoleCustomer
}
