package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrAccountInactive is returned at login when the user, its company, or the
// company's payment status forbids access.
type ErrAccountInactive struct {
	Reason string
}

func (e *ErrAccountInactive) Error() string {
	switch e.Reason {
	case InactiveReasonCompany:
		return "Empresa inativa. Entre em contato com o suporte"
	case InactiveReasonPayment:
		return "Pagamento em atraso. Regularize para continuar"
	default:
		return "Usuário inativo"
	}
}

const (
	InactiveReasonUser    = "user"
	InactiveReasonCompany = "company"
	InactiveReasonPayment = "payment"
)

// ErrConflict indicates a resource already exists (e.g. duplicate CNPJ).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrPlanInUse blocks deleting a plan that companies still reference.
type ErrPlanInUse struct {
	PlanID    int64
	Companies int64
}

func (e *ErrPlanInUse) Error() string {
	return fmt.Sprintf("Não é possível excluir o plano: %d empresa(s) vinculada(s)", e.Companies)
}
