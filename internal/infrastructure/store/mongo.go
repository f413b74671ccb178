package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// OpenMongo connects, ensures indexes and returns the document backend.
func OpenMongo(ctx context.Context, uri, database string) (*Backend, error) {
	db, err := ConnectMongoDB(ctx, uri, database)
	if err != nil {
		return nil, err
	}
	m := NewMongo(db)
	if err := m.CreateIndexes(ctx); err != nil {
		db.Client().Disconnect(ctx)
		return nil, err
	}

	b := &Backend{
		Name:         "mongo",
		Carts:        m,
		Products:     m,
		Testimonials: m,
		Orders:       m,
		Users:        m,
	}
	b.onClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.Client().Disconnect(ctx)
	})
	return b, nil
}

// Mongo implements every repository contract on MongoDB. Each cart line is
// its own document so a line write never rewrites the whole cart.
type Mongo struct {
	products     *mongo.Collection
	testimonials *mongo.Collection
	cartItems    *mongo.Collection
	orders       *mongo.Collection
	users        *mongo.Collection
	now          func() time.Time
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		products:     db.Collection("products"),
		testimonials: db.Collection("testimonials"),
		cartItems:    db.Collection("cart_items"),
		orders:       db.Collection("orders"),
		users:        db.Collection("users"),
		now:          time.Now,
	}
}

func (m *Mongo) CreateIndexes(ctx context.Context) error {
	_, err := m.cartItems.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "product_id", Value: 1},
				{Key: "size", Value: 1},
				{Key: "color", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	_, err = m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = m.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

// ============================================
// cart.Repository
// ============================================

type mongoCartLine struct {
	OwnerID   string    `bson:"owner_id"`
	ProductID string    `bson:"product_id"`
	Size      string    `bson:"size"`
	Color     string    `bson:"color"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

func lineFilter(owner string, key cart.Key) bson.M {
	return bson.M{"owner_id": owner, "product_id": key.ProductID, "size": key.Size, "color": key.Color}
}

func (m *Mongo) ListLines(ctx context.Context, owner string) ([]cart.Line, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.cartItems.Find(ctx, bson.M{"owner_id": owner}, opts)
	if err != nil {
		return nil, unavailable("list cart lines", err)
	}
	var docs []mongoCartLine
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("list cart lines", err)
	}

	lines := make([]cart.Line, 0, len(docs))
	for _, d := range docs {
		lines = append(lines, cart.Line{ProductID: d.ProductID, Size: d.Size, Color: d.Color, Quantity: d.Quantity})
	}
	return lines, nil
}

func (m *Mongo) GetLine(ctx context.Context, owner string, key cart.Key) (cart.Line, bool, error) {
	var d mongoCartLine
	err := m.cartItems.FindOne(ctx, lineFilter(owner, key)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cart.Line{}, false, nil
	}
	if err != nil {
		return cart.Line{}, false, unavailable("get cart line", err)
	}
	return cart.Line{ProductID: d.ProductID, Size: d.Size, Color: d.Color, Quantity: d.Quantity}, true, nil
}

func (m *Mongo) SaveLine(ctx context.Context, owner string, line cart.Line) error {
	update := bson.M{
		"$set":         bson.M{"quantity": line.Quantity},
		"$setOnInsert": bson.M{"added_at": m.now().UTC()},
	}
	_, err := m.cartItems.UpdateOne(ctx, lineFilter(owner, line.Key()), update, options.Update().SetUpsert(true))
	return unavailable("save cart line", err)
}

func (m *Mongo) DeleteLine(ctx context.Context, owner string, key cart.Key) error {
	_, err := m.cartItems.DeleteOne(ctx, lineFilter(owner, key))
	return unavailable("delete cart line", err)
}

func (m *Mongo) DeleteLines(ctx context.Context, owner string) error {
	_, err := m.cartItems.DeleteMany(ctx, bson.M{"owner_id": owner})
	return unavailable("clear cart", err)
}

// ============================================
// catalog.Source / catalog.TestimonialSource
// ============================================

type mongoProduct struct {
	ID          string    `bson:"id"`
	Name        string    `bson:"name"`
	Price       int64     `bson:"price"`
	OldPrice    *int64    `bson:"old_price,omitempty"`
	Category    string    `bson:"category"`
	Image       string    `bson:"image,omitempty"`
	ImageURL    string    `bson:"image_url,omitempty"`
	Description string    `bson:"description"`
	IsNew       bool      `bson:"is_new"`
	IsTrending  bool      `bson:"is_trending"`
	Sizes       []string  `bson:"sizes,omitempty"`
	Colors      []string  `bson:"colors,omitempty"`
	BestForWear string    `bson:"best_for_wear,omitempty"`
	Gender      string    `bson:"gender,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (mp mongoProduct) toProduct() catalog.Product {
	p := catalog.Product{
		ID:          mp.ID,
		Name:        mp.Name,
		Price:       mp.Price,
		OldPrice:    mp.OldPrice,
		Category:    mp.Category,
		Image:       mp.Image,
		Description: mp.Description,
		IsNew:       mp.IsNew,
		IsTrending:  mp.IsTrending,
		Sizes:       mp.Sizes,
		Colors:      mp.Colors,
		BestForWear: mp.BestForWear,
		Gender:      mp.Gender,
		CreatedAt:   mp.CreatedAt,
	}
	if p.Image == "" {
		p.Image = mp.ImageURL
	}
	p.Normalize()
	return p
}

func (m *Mongo) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: 1}})
	cur, err := m.products.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, unavailable("list products", err)
	}
	var docs []mongoProduct
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("list products", err)
	}

	products := make([]catalog.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toProduct())
	}
	return products, nil
}

func (m *Mongo) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var d mongoProduct
	err := m.products.FindOne(ctx, bson.M{"id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get product", err)
	}
	p := d.toProduct()
	return &p, nil
}

type mongoTestimonial struct {
	ID       string  `bson:"id"`
	Name     string  `bson:"name"`
	Role     *string `bson:"role"`
	Rating   *int    `bson:"rating"`
	Text     string  `bson:"text"`
	Avatar   *string `bson:"avatar"`
	Approved *bool   `bson:"approved"`
}

func (m *Mongo) ListTestimonials(ctx context.Context) ([]catalog.TestimonialRecord, error) {
	cur, err := m.testimonials.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, unavailable("list testimonials", err)
	}
	var docs []mongoTestimonial
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("list testimonials", err)
	}

	records := make([]catalog.TestimonialRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, catalog.TestimonialRecord(d))
	}
	return records, nil
}

// ============================================
// order.Repository
// ============================================

type mongoOrder struct {
	ID            string        `bson:"id"`
	OwnerID       string        `bson:"owner_id"`
	Contact       order.Contact `bson:"contact"`
	Subtotal      int64         `bson:"subtotal"`
	ShippingFee   int64         `bson:"shipping_fee"`
	Total         int64         `bson:"total"`
	PaymentMethod string        `bson:"payment_method"`
	Status        string        `bson:"status"`
	CreatedAt     time.Time     `bson:"created_at"`
	Items         []order.Item  `bson:"items"`
}

// Create inserts the order with its items embedded, a single-document write.
func (m *Mongo) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrEmptyOrder
	}
	_, err := m.orders.InsertOne(ctx, mongoOrder{
		ID:            o.ID,
		OwnerID:       o.OwnerID,
		Contact:       o.Contact,
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt.UTC(),
		Items:         o.Items,
	})
	return unavailable("create order", err)
}

func (mo mongoOrder) toOrder() order.Order {
	items := mo.Items
	if items == nil {
		items = []order.Item{}
	}
	return order.Order{
		ID:            mo.ID,
		OwnerID:       mo.OwnerID,
		Contact:       mo.Contact,
		Subtotal:      mo.Subtotal,
		ShippingFee:   mo.ShippingFee,
		Total:         mo.Total,
		PaymentMethod: order.PaymentMethod(mo.PaymentMethod),
		Status:        order.Status(mo.Status),
		CreatedAt:     mo.CreatedAt,
		Items:         items,
	}
}

func (m *Mongo) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.orders.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, unavailable("list orders", err)
	}
	var docs []mongoOrder
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("list orders", err)
	}

	orders := make([]order.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, d.toOrder())
	}
	return orders, nil
}

func (m *Mongo) Get(ctx context.Context, ownerID, id string) (*order.Order, error) {
	var d mongoOrder
	err := m.orders.FindOne(ctx, bson.M{"id": id, "owner_id": ownerID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, unavailable("get order", err)
	}
	o := d.toOrder()
	return &o, nil
}

// ============================================
// user.Repository
// ============================================

type mongoUser struct {
	ID           string    `bson:"id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (m *Mongo) CreateUser(ctx context.Context, u *user.User) error {
	_, err := m.users.InsertOne(ctx, mongoUser(*u))
	if mongo.IsDuplicateKeyError(err) {
		return user.ErrEmailTaken
	}
	return unavailable("create user", err)
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *Mongo) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	return m.findUser(ctx, bson.M{"id": id})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var d mongoUser
	err := m.users.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	u := user.User(d)
	return &u, nil
}
