// Package validation содержит локальную проверку данных до обращения к удалённому сервису.
package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/food-admin/internal/model"
)

// Имена полей формы добавления блюда.
const (
	FieldImage       = "image"
	FieldName        = "name"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldStatus      = "status"
)

// FieldError описывает нарушение правила для одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error возвращается, если данные не прошли локальную проверку. Сетевой запрос в этом случае не выполняется.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has сообщает, содержит ли ошибка нарушение для указанного поля.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ValidateDraft проверяет черновик блюда и возвращает разобранную цену.
func ValidateDraft(d *model.Draft) (decimal.Decimal, error) {
	var fields []FieldError

	if d.Image == nil || len(d.Image.Data) == 0 {
		fields = append(fields, FieldError{Field: FieldImage, Message: "Please select an image"})
	}
	if strings.TrimSpace(d.Name) == "" {
		fields = append(fields, FieldError{Field: FieldName, Message: "Please enter a product name"})
	}
	if strings.TrimSpace(d.Description) == "" {
		fields = append(fields, FieldError{Field: FieldDescription, Message: "Please enter a description"})
	}

	price, ok := ParsePrice(d.Price)
	if !ok {
		fields = append(fields, FieldError{Field: FieldPrice, Message: "Please enter a valid price"})
	}

	if !d.Category.Valid() {
		fields = append(fields, FieldError{Field: FieldCategory, Message: "Please select a valid category"})
	}

	if len(fields) > 0 {
		return decimal.Zero, &Error{Fields: fields}
	}
	return price, nil
}

// ParsePrice разбирает цену из строки формы. Пустая, нечисловая и неположительная цена недопустимы.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// ValidateStatus проверяет, что статус заказа входит в допустимый набор.
func ValidateStatus(s model.OrderStatus) error {
	if s.Valid() {
		return nil
	}
	return &Error{Fields: []FieldError{{Field: FieldStatus, Message: "unknown order status " + string(s)}}}
}
