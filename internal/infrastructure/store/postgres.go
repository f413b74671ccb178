package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// MigratePostgres applies the embedded schema. Already-applied migrations are
// not an error.
func MigratePostgres(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// OpenPostgres connects, migrates and returns the relational backend.
func OpenPostgres(ctx context.Context, connStr string) (*Backend, error) {
	db, err := ConnectPostgres(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := MigratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}

	pg := NewPostgres(db)
	b := &Backend{
		Name:         "postgres",
		Carts:        pg,
		Products:     pg,
		Testimonials: pg,
		Orders:       pg,
		Users:        pg,
	}
	b.onClose(db.Close)
	return b, nil
}

// Postgres implements every repository contract on one database. Owner-scoped
// statements run inside a transaction that sets app.user_id, which the row
// level security policies check.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) withOwner(ctx context.Context, owner string, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.user_id', $1, true)`, owner); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ============================================
// cart.Repository
// ============================================

func (p *Postgres) ListLines(ctx context.Context, owner string) ([]cart.Line, error) {
	lines := []cart.Line{}
	err := p.withOwner(ctx, owner, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, size, color, quantity
			 FROM cart_items
			 WHERE user_id = $1
			 ORDER BY id ASC`,
			owner,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l cart.Line
			if err := rows.Scan(&l.ProductID, &l.Size, &l.Color, &l.Quantity); err != nil {
				return err
			}
			lines = append(lines, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, unavailable("list cart lines", err)
	}
	return lines, nil
}

func (p *Postgres) GetLine(ctx context.Context, owner string, key cart.Key) (cart.Line, bool, error) {
	line := cart.Line{ProductID: key.ProductID, Size: key.Size, Color: key.Color}
	found := false
	err := p.withOwner(ctx, owner, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM cart_items
			 WHERE user_id = $1 AND product_id = $2 AND size = $3 AND color = $4`,
			owner, key.ProductID, key.Size, key.Color,
		).Scan(&line.Quantity)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return cart.Line{}, false, unavailable("get cart line", err)
	}
	if !found {
		return cart.Line{}, false, nil
	}
	return line, true, nil
}

func (p *Postgres) SaveLine(ctx context.Context, owner string, line cart.Line) error {
	err := p.withOwner(ctx, owner, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cart_items (user_id, product_id, size, color, quantity)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, product_id, size, color)
			 DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
			owner, line.ProductID, line.Size, line.Color, line.Quantity,
		)
		return err
	})
	return unavailable("save cart line", err)
}

func (p *Postgres) DeleteLine(ctx context.Context, owner string, key cart.Key) error {
	err := p.withOwner(ctx, owner, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items
			 WHERE user_id = $1 AND product_id = $2 AND size = $3 AND color = $4`,
			owner, key.ProductID, key.Size, key.Color,
		)
		return err
	})
	return unavailable("delete cart line", err)
}

func (p *Postgres) DeleteLines(ctx context.Context, owner string) error {
	err := p.withOwner(ctx, owner, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, owner)
		return err
	})
	return unavailable("clear cart", err)
}

// ============================================
// catalog.Source / catalog.TestimonialSource
// ============================================

const productColumns = `id, COALESCE(name, ''), price, old_price, COALESCE(category, ''),
	COALESCE(image, image_url, ''), COALESCE(description, ''), is_new, is_trending,
	sizes, colors, COALESCE(best_for_wear, ''), COALESCE(gender, ''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (catalog.Product, error) {
	var p catalog.Product
	var oldPrice sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &p.Price, &oldPrice, &p.Category,
		&p.Image, &p.Description, &p.IsNew, &p.IsTrending,
		pq.Array(&p.Sizes), pq.Array(&p.Colors), &p.BestForWear, &p.Gender, &p.CreatedAt)
	if err != nil {
		return catalog.Product{}, err
	}
	if oldPrice.Valid {
		v := oldPrice.Int64
		p.OldPrice = &v
	}
	p.Normalize()
	return p, nil
}

func (p *Postgres) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, unavailable("list products", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, unavailable("scan product", err)
		}
		products = append(products, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list products", err)
	}
	return products, nil
}

func (p *Postgres) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	prod, err := scanProduct(p.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get product", err)
	}
	return &prod, nil
}

func (p *Postgres) ListTestimonials(ctx context.Context) ([]catalog.TestimonialRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, role, rating, text, avatar, approved
		 FROM testimonials
		 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, unavailable("list testimonials", err)
	}
	defer rows.Close()

	records := []catalog.TestimonialRecord{}
	for rows.Next() {
		var (
			r        catalog.TestimonialRecord
			role     sql.NullString
			rating   sql.NullInt32
			avatar   sql.NullString
			approved sql.NullBool
		)
		if err := rows.Scan(&r.ID, &r.Name, &role, &rating, &r.Text, &avatar, &approved); err != nil {
			return nil, unavailable("scan testimonial", err)
		}
		if role.Valid {
			r.Role = &role.String
		}
		if rating.Valid {
			v := int(rating.Int32)
			r.Rating = &v
		}
		if avatar.Valid {
			r.Avatar = &avatar.String
		}
		if approved.Valid {
			r.Approved = &approved.Bool
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list testimonials", err)
	}
	return records, nil
}

// ============================================
// order.Repository
// ============================================

// Create writes the order row and its items in one transaction.
func (p *Postgres) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrEmptyOrder
	}
	err := p.withOwner(ctx, o.OwnerID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, email, first_name, last_name, address, city, zip_code, phone,
			                     subtotal, shipping_fee, total, payment_method, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			o.ID, o.OwnerID, o.Contact.Email, o.Contact.FirstName, o.Contact.LastName,
			o.Contact.Address, o.Contact.City, o.Contact.ZipCode, o.Contact.Phone,
			o.Subtotal, o.ShippingFee, o.Total, string(o.PaymentMethod), string(o.Status), o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO order_items (order_id, product_id, size, color, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range o.Items {
			if _, err := stmt.ExecContext(ctx, o.ID, it.ProductID, it.Size, it.Color, it.Quantity, it.UnitPrice); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	return unavailable("create order", err)
}

const orderColumns = `id, user_id, email, first_name, last_name, address, city, zip_code, phone,
	subtotal, shipping_fee, total, payment_method, status, created_at`

func scanOrder(row rowScanner) (order.Order, error) {
	var o order.Order
	var method, status string
	err := row.Scan(&o.ID, &o.OwnerID, &o.Contact.Email, &o.Contact.FirstName, &o.Contact.LastName,
		&o.Contact.Address, &o.Contact.City, &o.Contact.ZipCode, &o.Contact.Phone,
		&o.Subtotal, &o.ShippingFee, &o.Total, &method, &status, &o.CreatedAt)
	o.PaymentMethod = order.PaymentMethod(method)
	o.Status = order.Status(status)
	return o, err
}

func (p *Postgres) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	orders := []order.Order{}
	err := p.withOwner(ctx, ownerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+orderColumns+` FROM orders
			 WHERE user_id = $1
			 ORDER BY created_at DESC`,
			ownerID,
		)
		if err != nil {
			return err
		}
		index := make(map[string]int)
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				rows.Close()
				return err
			}
			o.Items = []order.Item{}
			index[o.ID] = len(orders)
			orders = append(orders, o)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(orders) == 0 {
			return nil
		}

		ids := make([]string, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		itemRows, err := tx.QueryContext(ctx,
			`SELECT order_id, product_id, size, color, quantity, unit_price
			 FROM order_items
			 WHERE order_id = ANY($1)
			 ORDER BY id ASC`,
			pq.Array(ids),
		)
		if err != nil {
			return err
		}
		defer itemRows.Close()
		for itemRows.Next() {
			var orderID string
			var it order.Item
			if err := itemRows.Scan(&orderID, &it.ProductID, &it.Size, &it.Color, &it.Quantity, &it.UnitPrice); err != nil {
				return err
			}
			if i, ok := index[orderID]; ok {
				orders[i].Items = append(orders[i].Items, it)
			}
		}
		return itemRows.Err()
	})
	if err != nil {
		return nil, unavailable("list orders", err)
	}
	return orders, nil
}

func (p *Postgres) Get(ctx context.Context, ownerID, id string) (*order.Order, error) {
	var o order.Order
	err := p.withOwner(ctx, ownerID, func(tx *sql.Tx) error {
		var err error
		o, err = scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, ownerID))
		if err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, size, color, quantity, unit_price
			 FROM order_items WHERE order_id = $1 ORDER BY id ASC`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		o.Items = []order.Item{}
		for rows.Next() {
			var it order.Item
			if err := rows.Scan(&it.ProductID, &it.Size, &it.Color, &it.Quantity, &it.UnitPrice); err != nil {
				return err
			}
			o.Items = append(o.Items, it)
		}
		return rows.Err()
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, unavailable("get order", err)
	}
	return &o, nil
}

// ============================================
// user.Repository
// ============================================

func (p *Postgres) CreateUser(ctx context.Context, u *user.User) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return user.ErrEmailTaken
	}
	return unavailable("create user", err)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return p.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	return p.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (p *Postgres) getUser(ctx context.Context, query string, arg string) (*user.User, error) {
	var u user.User
	err := p.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return &u, nil
}
