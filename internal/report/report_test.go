package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logger"
)

type recordingMailer struct {
	sent []Report
	err  error
}

func (m *recordingMailer) SendDailyReport(ctx context.Context, r Report) error {
	m.sent = append(m.sent, r)
	return m.err
}

var salesQuery = regexp.QuoteMeta("FROM order_items oi JOIN orders o ON o.id = oi.order_id")

func salesColumns() []string {
	return []string{"product_id", "name", "sum", "sum"}
}

func TestBounds(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Copenhagen")
	require.NoError(t, err)

	date := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)
	start, end := Bounds(date, loc)

	require.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, loc), end)
}

func TestAggregate_SumsPlacedOrdersOfTheDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewReporter(db, time.UTC, &recordingMailer{}, logger.Discard())
	date := time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC)
	start, end := Bounds(date, time.UTC)

	mock.ExpectQuery(salesQuery).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(salesColumns()).
			AddRow("p-lamp", "Lamp", 3, "30.00").
			AddRow("p-desk", "Desk", 1, "20.00").
			AddRow("p-pen", "Pen", 3, "4.47"))

	rep, err := r.Aggregate(context.Background(), date)
	require.NoError(t, err)

	require.Equal(t, start, rep.Date)
	require.Equal(t, "2026-03-14", rep.Day())
	require.Equal(t, 7, rep.TotalProductsSold)
	require.True(t, decimal.RequireFromString("54.47").Equal(rep.TotalRevenue), rep.TotalRevenue.String())

	require.Len(t, rep.TopProducts, 3)
	require.Equal(t, "Lamp", rep.TopProducts[0].Name)
	require.Equal(t, "Pen", rep.TopProducts[1].Name)
	require.Equal(t, "Desk", rep.TopProducts[2].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregate_EmptyDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewReporter(db, time.UTC, &recordingMailer{}, logger.Discard())
	mock.ExpectQuery(salesQuery).WillReturnRows(sqlmock.NewRows(salesColumns()))

	rep, err := r.Aggregate(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, rep.TotalProductsSold)
	require.True(t, rep.TotalRevenue.IsZero())
	require.Empty(t, rep.TopProducts)
}

func TestAggregate_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewReporter(db, time.UTC, &recordingMailer{}, logger.Discard())
	mock.ExpectQuery(salesQuery).WillReturnError(errors.New("connection reset"))

	_, err = r.Aggregate(context.Background(), time.Now())
	require.Error(t, err)
}

func TestTopCapsAndBreaksTies(t *testing.T) {
	var all []ProductSales
	for i := 0; i < 12; i++ {
		all = append(all, ProductSales{
			ProductID: fmt.Sprintf("p%d", i),
			Name:      fmt.Sprintf("Product %02d", i),
			Quantity:  1,
			Revenue:   decimal.NewFromInt(5),
		})
	}
	all[7].Revenue = decimal.NewFromInt(9)

	got := top(all, TopLimit)
	require.Len(t, got, TopLimit)
	require.Equal(t, "Product 07", got[0].Name)
	require.Equal(t, "Product 00", got[1].Name)
	require.Equal(t, "Product 01", got[2].Name)
}

func TestSend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := &recordingMailer{}
	r := NewReporter(db, time.UTC, m, logger.Discard())
	mock.ExpectQuery(salesQuery).
		WillReturnRows(sqlmock.NewRows(salesColumns()).AddRow("p-lamp", "Lamp", 2, "20.00"))

	rep, err := r.Send(context.Background(), time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	require.Equal(t, rep, m.sent[0])
}

func TestSend_MailFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := &recordingMailer{err: errors.New("smtp down")}
	r := NewReporter(db, time.UTC, m, logger.Discard())
	mock.ExpectQuery(salesQuery).WillReturnRows(sqlmock.NewRows(salesColumns()))

	_, err = r.Send(context.Background(), time.Now())
	require.ErrorContains(t, err, "smtp down")
}
