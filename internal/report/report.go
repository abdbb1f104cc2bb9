package report

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TopLimit caps the number of products listed in a daily report.
const TopLimit = 10

type ProductSales struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type Report struct {
	Date              time.Time       `json:"date"`
	TotalProductsSold int             `json:"totalProductsSold"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TopProducts       []ProductSales  `json:"topProducts"`
}

// Day formats the report date the way it appears in the mail subject.
func (r Report) Day() string {
	return r.Date.Format(time.DateOnly)
}

type Mailer interface {
	SendDailyReport(ctx context.Context, r Report) error
}

type Reporter struct {
	db     *sql.DB
	loc    *time.Location
	mailer Mailer
	logger *slog.Logger
}

func NewReporter(db *sql.DB, loc *time.Location, mailer Mailer, logger *slog.Logger) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{db: db, loc: loc, mailer: mailer, logger: logger}
}

// Bounds returns the half-open interval [start, end) covering the calendar
// day of date in loc.
func Bounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	d := date.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

const salesByProductSQL = `
SELECT oi.product_id, p.name, SUM(oi.quantity), SUM(oi.quantity * oi.price)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN products p ON p.id = oi.product_id
WHERE o.status = 'placed' AND o.created_at >= $1 AND o.created_at < $2
GROUP BY oi.product_id, p.name`

// Aggregate sums the placed orders created on date.
func (r *Reporter) Aggregate(ctx context.Context, date time.Time) (Report, error) {
	start, end := Bounds(date, r.loc)
	rep := Report{Date: start, TotalRevenue: decimal.Zero}

	rows, err := r.db.QueryContext(ctx, salesByProductSQL, start, end)
	if err != nil {
		return Report{}, fmt.Errorf("select sales: %w", err)
	}
	defer rows.Close()

	var all []ProductSales
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Quantity, &ps.Revenue); err != nil {
			return Report{}, fmt.Errorf("scan sales: %w", err)
		}
		rep.TotalProductsSold += ps.Quantity
		rep.TotalRevenue = rep.TotalRevenue.Add(ps.Revenue)
		all = append(all, ps)
	}
	if err := rows.Err(); err != nil {
		return Report{}, fmt.Errorf("rows: %w", err)
	}

	rep.TopProducts = top(all, TopLimit)
	return rep, nil
}

func top(all []ProductSales, n int) []ProductSales {
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Send aggregates the day and mails the result to the admin.
func (r *Reporter) Send(ctx context.Context, date time.Time) (Report, error) {
	rep, err := r.Aggregate(ctx, date)
	if err != nil {
		return Report{}, err
	}
	if err := r.mailer.SendDailyReport(ctx, rep); err != nil {
		return rep, fmt.Errorf("send report: %w", err)
	}
	r.logger.Info("daily sales report sent",
		"date", rep.Day(),
		"products_sold", rep.TotalProductsSold,
		"revenue", rep.TotalRevenue.StringFixed(2),
	)
	return rep, nil
}
