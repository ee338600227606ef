package service

import "food-order-service/internal/model"

// Secuencia normal del ciclo de vida. CANCELLED queda fuera de la secuencia.
var statusSequence = []model.Status{
	model.StatusPending,
	model.StatusConfirmed,
	model.StatusApproved,
	model.StatusPrepared,
	model.StatusPickedUp,
	model.StatusDelivered,
}

// Estados finales
var finalStates = map[model.Status]bool{
	model.StatusDelivered: true,
	model.StatusCancelled: true,
}

// Estados destino permitidos por rol vía PATCH /status.
// CONFIRMED no figura: sólo se alcanza con la confirmación del comprador.
var roleTargets = map[model.Role][]model.Status{
	model.RoleSeller: {model.StatusApproved, model.StatusPrepared},
	model.RoleDriver: {model.StatusPickedUp, model.StatusDelivered},
}

// Desde qué estados puede cancelar cada rol.
var cancelFrom = map[model.Role][]model.Status{
	model.RoleUser:   {model.StatusPending},
	model.RoleSeller: {model.StatusPending, model.StatusConfirmed},
}

func statusIndex(s model.Status) int {
	for i, v := range statusSequence {
		if v == s {
			return i
		}
	}
	return -1
}

// IsValidStatus indica si s es un estado conocido.
func IsValidStatus(s model.Status) bool {
	return s == model.StatusCancelled || statusIndex(s) >= 0
}

// IsFinal indica si la orden ya no admite cambios de estado.
func IsFinal(s model.Status) bool {
	return finalStates[s]
}

// ValidateTransition aplica las reglas de transición para el rol dado.
// Primero la regla general de secuencia y después el permiso del rol.
func ValidateTransition(role model.Role, current, next model.Status) error {
	if IsFinal(current) {
		return ErrFinalState
	}
	if !IsValidStatus(next) {
		return ErrInvalidStatus
	}

	if next == model.StatusCancelled {
		allowed, ok := cancelFrom[role]
		if !ok {
			return ErrForbidden
		}
		if !contains(allowed, current) {
			return ErrInvalidTransition
		}
		return nil
	}

	sequential := statusIndex(next) == statusIndex(current)+1
	sellerApproves := role == model.RoleSeller &&
		current == model.StatusConfirmed && next == model.StatusApproved
	if !sequential && !sellerApproves {
		return ErrInvalidTransition
	}

	if !contains(roleTargets[role], next) {
		return ErrForbidden
	}
	return nil
}

func contains(arr []model.Status, s model.Status) bool {
	for _, v := range arr {
		if v == s {
			return true
		}
	}
	return false
}
