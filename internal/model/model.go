// Package model содержит доменные сущности административного клиента.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category описывает категорию блюда в каталоге.
type Category string

const (
	CategoryBoccha   Category = "Boccha"
	CategoryDhuBocha Category = "Dhu Bocha"
	CategoryRovu     Category = "Rovu"
	CategoryValuga   Category = "Valuga"
	CategoryMurgam   Category = "Murgam"
	CategoryMatta    Category = "Matta"
	CategoryNarJalla Category = "Nar Jalla"
	CategoryRoyya    Category = "Royya"
)

// DefaultCategory подставляется в новый черновик формы.
const DefaultCategory = CategoryBoccha

// Categories возвращает фиксированный набор категорий в порядке отображения.
func Categories() []Category {
	return []Category{
		CategoryBoccha,
		CategoryDhuBocha,
		CategoryRovu,
		CategoryValuga,
		CategoryMurgam,
		CategoryMatta,
		CategoryNarJalla,
		CategoryRoyya,
	}
}

// Valid сообщает, входит ли категория в фиксированный набор.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// FoodItem представляет позицию каталога, как её отдаёт удалённый сервис.
type FoodItem struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Image       string          `json:"image"`
}

// OrderStatus описывает статус доставки заказа.
type OrderStatus string

const (
	OrderStatusFoodProcessing OrderStatus = "Food Processing"
	OrderStatusOutForDelivery OrderStatus = "Out for delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

// OrderStatuses возвращает все допустимые статусы заказа.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusFoodProcessing,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
	}
}

// Valid сообщает, является ли статус одним из трёх допустимых значений.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusFoodProcessing, OrderStatusOutForDelivery, OrderStatusDelivered:
		return true
	}
	return false
}

// Terminal сообщает, что клиент не предлагает дальнейших переходов из статуса.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered
}

// PaymentMode описывает способ оплаты заказа.
type PaymentMode string

const (
	PaymentModeCOD    PaymentMode = "cod"
	PaymentModeOnline PaymentMode = "online"
)

// LineItem описывает одну позицию в заказе.
type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Address содержит адрес доставки заказа.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Zipcode   string `json:"zipcode"`
	Phone     string `json:"phone"`
}

// Order описывает заказ покупателя.
type Order struct {
	ID          string          `json:"_id"`
	Items       []LineItem      `json:"items"`
	Address     Address         `json:"address"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode PaymentMode     `json:"paymentMode"`
	Payment     bool            `json:"payment"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
}

// Draft содержит поля формы добавления блюда в том виде, в каком их ввёл пользователь.
type Draft struct {
	Name        string
	Description string
	Price       string
	Category    Category
	Image       *ImagePayload
}

// NewDraft возвращает пустой черновик с категорией по умолчанию.
func NewDraft() *Draft {
	return &Draft{Category: DefaultCategory}
}

// Reset возвращает черновик к значениям по умолчанию.
func (d *Draft) Reset() {
	*d = Draft{Category: DefaultCategory}
}

// ImagePayload содержит двоичные данные загружаемого изображения.
type ImagePayload struct {
	Filename    string
	ContentType string
	Data        []byte
}
