// Package tui реализует терминальную панель администратора.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmeshcher/food-admin/internal/legacyid"
	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/notify"
	"github.com/mmeshcher/food-admin/internal/store"
)

const refreshEvery = time.Second

// Catalog определяет операции каталога, доступные панели.
type Catalog interface {
	Snapshot() []model.FoodItem
	List(ctx context.Context) error
	Remove(ctx context.Context, id string, confirm store.Confirmer) error
}

// Orders определяет операции над заказами, доступные панели.
type Orders interface {
	Snapshot() []model.Order
	List(ctx context.Context) error
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
}

type tab int

const (
	tabOrders tab = iota
	tabCatalog
)

type tickMsg time.Time

type opResult struct {
	err error
}

// Model хранит состояние панели. Данные читаются из снимков хранилищ.
type Model struct {
	ctx     context.Context
	catalog Catalog
	orders  Orders
	feed    *Feed

	tab           tab
	orderCursor   int
	foodCursor    int
	orderRows     []model.Order
	foodRows      []model.FoodItem
	pendingRemove string
	busy          bool
	status        string
	seenSeq       uint64
}

// New создаёт модель панели.
func New(ctx context.Context, c Catalog, o Orders, feed *Feed) Model {
	m := Model{
		ctx:     ctx,
		catalog: c,
		orders:  o,
		feed:    feed,
		status:  "Ready",
	}
	m.reload()
	return m
}

// Run запускает панель и блокируется до выхода пользователя или отмены ctx.
func Run(ctx context.Context, c Catalog, o Orders, feed *Feed) error {
	p := tea.NewProgram(New(ctx, c, o, feed), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) reload() {
	m.orderRows = m.orders.Snapshot()
	m.foodRows = m.catalog.Snapshot()
	m.orderCursor = clamp(m.orderCursor, len(m.orderRows))
	m.foodCursor = clamp(m.foodCursor, len(m.foodRows))

	if m.feed == nil {
		return
	}
	seq, level, msg := m.feed.Last()
	if seq <= m.seenSeq {
		return
	}
	m.seenSeq = seq
	if level == notify.LevelError {
		m.status = "Error: " + msg
	} else {
		m.status = msg
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.reload()
		return m, tick()
	case opResult:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Done"
		}
		m.reload()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.pendingRemove != "" {
		id := m.pendingRemove
		m.pendingRemove = ""
		if key != "y" {
			m.status = "Removal cancelled"
			return m, nil
		}
		m.busy = true
		m.status = "Removing..."
		return m, m.removeCmd(id)
	}

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.tab == tabOrders {
			m.tab = tabCatalog
		} else {
			m.tab = tabOrders
		}
	case "up":
		if m.tab == tabOrders && m.orderCursor > 0 {
			m.orderCursor--
		}
		if m.tab == tabCatalog && m.foodCursor > 0 {
			m.foodCursor--
		}
	case "down":
		if m.tab == tabOrders && m.orderCursor < len(m.orderRows)-1 {
			m.orderCursor++
		}
		if m.tab == tabCatalog && m.foodCursor < len(m.foodRows)-1 {
			m.foodCursor++
		}
	case "r":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Refreshing..."
		return m, m.refreshCmd()
	case "1", "2", "3":
		if m.tab != tabOrders || len(m.orderRows) == 0 || m.busy {
			return m, nil
		}
		status := model.OrderStatuses()[key[0]-'1']
		m.busy = true
		m.status = "Updating status..."
		return m, m.statusCmd(m.orderRows[m.orderCursor].ID, status)
	case "x":
		if m.tab != tabCatalog || len(m.foodRows) == 0 {
			return m, nil
		}
		item := m.foodRows[m.foodCursor]
		m.pendingRemove = item.ID
		m.status = fmt.Sprintf("%s (%s) y/n", store.RemovePrompt, item.Name)
	}
	return m, nil
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, c, o, current := m.ctx, m.catalog, m.orders, m.tab
	return func() tea.Msg {
		if current == tabOrders {
			return opResult{err: o.List(ctx)}
		}
		return opResult{err: c.List(ctx)}
	}
}

func (m Model) statusCmd(id string, status model.OrderStatus) tea.Cmd {
	ctx, o := m.ctx, m.orders
	return func() tea.Msg {
		return opResult{err: o.UpdateStatus(ctx, id, status)}
	}
}

// removeCmd вызывается после того, как пользователь уже ответил "y".
func (m Model) removeCmd(id string) tea.Cmd {
	ctx, c := m.ctx, m.catalog
	return func() tea.Msg {
		return opResult{err: c.Remove(ctx, id, store.Approved(true))}
	}
}

func (m Model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "food-admin")
	fmt.Fprintln(b, "")

	ordersTab, catalogTab := " Orders ", " Catalog "
	if m.tab == tabOrders {
		ordersTab = "[Orders]"
	} else {
		catalogTab = "[Catalog]"
	}
	fmt.Fprintf(b, "%s %s\n\n", ordersTab, catalogTab)

	if m.tab == tabOrders {
		m.viewOrders(b)
	} else {
		m.viewCatalog(b)
	}

	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: tab switch, up/down select, 1/2/3 set status, x remove, r refresh, q quit")
	return b.String()
}

func (m Model) viewOrders(b *strings.Builder) {
	if len(m.orderRows) == 0 {
		fmt.Fprintln(b, "  no orders")
		return
	}
	for i, o := range m.orderRows {
		marker := " "
		if i == m.orderCursor {
			marker = ">"
		}
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, fmt.Sprintf("%s x %d", it.Name, it.Quantity))
		}
		paid := "Pending"
		if o.Payment {
			paid = "Paid"
		}
		fmt.Fprintf(b, " %s %s  %s %s  %s  %s %s  [%s]\n",
			marker,
			legacyid.Format(o.ID, o.CreatedAt),
			o.Address.FirstName, o.Address.LastName,
			strings.Join(items, ", "),
			o.Amount.StringFixed(2), paid,
			o.Status,
		)
	}
}

func (m Model) viewCatalog(b *strings.Builder) {
	if len(m.foodRows) == 0 {
		fmt.Fprintln(b, "  no food items")
		return
	}
	for i, f := range m.foodRows {
		marker := " "
		if i == m.foodCursor {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-24s %-10s %8s\n", marker, f.Name, f.Category, f.Price.StringFixed(2))
	}
}
