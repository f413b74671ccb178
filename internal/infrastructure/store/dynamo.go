package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
)

// DynamoAPI is the subset of the DynamoDB client the document backend uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Table and index names, each prefixed with DYNAMO_TABLE_PREFIX.
const (
	DynamoProductsTable     = "products"
	DynamoTestimonialsTable = "testimonials"
	DynamoCartsTable        = "carts"
	DynamoOrdersTable       = "orders"
	DynamoUsersTable        = "users"

	DynamoOrdersOwnerIndex = "owner-index"
	DynamoUsersIDIndex     = "id-index"

	// BatchWriteItem accepts at most 25 requests.
	dynamoBatchLimit = 25

	// Fixed width so stored timestamps sort lexically.
	dynamoTimeFormat = "2006-01-02T15:04:05.000000000Z"
)

// OpenDynamo builds the DynamoDB backend from the default AWS credential
// chain. A non-empty endpoint points the client at DynamoDB Local.
func OpenDynamo(ctx context.Context, region, endpoint, prefix string) (*Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	d := NewDynamo(client, prefix)
	return &Backend{
		Name:         "dynamodb",
		Carts:        d,
		Products:     d,
		Testimonials: d,
		Orders:       d,
		Users:        d,
	}, nil
}

// Dynamo implements every repository contract on DynamoDB. Orders embed
// their items so one PutItem writes the whole order.
type Dynamo struct {
	client DynamoAPI
	prefix string
	now    func() time.Time
}

func NewDynamo(client DynamoAPI, prefix string) *Dynamo {
	return &Dynamo{client: client, prefix: prefix, now: time.Now}
}

func (d *Dynamo) table(name string) *string {
	return aws.String(d.prefix + name)
}

// ============================================
// Carts: pk owner_id, sk line_key
// ============================================

type dynamoCartLine struct {
	OwnerID   string `dynamodbav:"owner_id"`
	LineKey   string `dynamodbav:"line_key"`
	ProductID string `dynamodbav:"product_id"`
	Size      string `dynamodbav:"size"`
	Color     string `dynamodbav:"color"`
	Quantity  int    `dynamodbav:"quantity"`
	AddedAt   string `dynamodbav:"added_at"`
}

func cartKey(owner string, key cart.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"owner_id": &types.AttributeValueMemberS{Value: owner},
		"line_key": &types.AttributeValueMemberS{Value: key.String()},
	}
}

func (d *Dynamo) queryCart(ctx context.Context, owner string) ([]dynamoCartLine, error) {
	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              d.table(DynamoCartsTable),
		KeyConditionExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})

	var items []dynamoCartLine
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []dynamoCartLine
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

// ListLines returns lines in the order they were first added.
func (d *Dynamo) ListLines(ctx context.Context, owner string) ([]cart.Line, error) {
	items, err := d.queryCart(ctx, owner)
	if err != nil {
		return nil, unavailable("list cart lines", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].AddedAt < items[j].AddedAt })

	lines := make([]cart.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, cart.Line{ProductID: it.ProductID, Size: it.Size, Color: it.Color, Quantity: it.Quantity})
	}
	return lines, nil
}

func (d *Dynamo) GetLine(ctx context.Context, owner string, key cart.Key) (cart.Line, bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      d.table(DynamoCartsTable),
		Key:            cartKey(owner, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return cart.Line{}, false, unavailable("get cart line", err)
	}
	if out.Item == nil {
		return cart.Line{}, false, nil
	}
	var it dynamoCartLine
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return cart.Line{}, false, fmt.Errorf("unmarshal cart line: %w", err)
	}
	return cart.Line{ProductID: it.ProductID, Size: it.Size, Color: it.Color, Quantity: it.Quantity}, true, nil
}

func (d *Dynamo) SaveLine(ctx context.Context, owner string, line cart.Line) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        d.table(DynamoCartsTable),
		Key:              cartKey(owner, line.Key()),
		UpdateExpression: aws.String("SET #p = :p, #s = :s, #c = :c, #q = :q, #a = if_not_exists(#a, :now)"),
		// size is a reserved word
		ExpressionAttributeNames: map[string]string{
			"#p": "product_id",
			"#s": "size",
			"#c": "color",
			"#q": "quantity",
			"#a": "added_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":   &types.AttributeValueMemberS{Value: line.ProductID},
			":s":   &types.AttributeValueMemberS{Value: line.Size},
			":c":   &types.AttributeValueMemberS{Value: line.Color},
			":q":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", line.Quantity)},
			":now": &types.AttributeValueMemberS{Value: d.now().UTC().Format(dynamoTimeFormat)},
		},
	})
	return unavailable("save cart line", err)
}

func (d *Dynamo) DeleteLine(ctx context.Context, owner string, key cart.Key) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: d.table(DynamoCartsTable),
		Key:       cartKey(owner, key),
	})
	return unavailable("delete cart line", err)
}

// DeleteLines removes the owner's lines in batches of 25.
func (d *Dynamo) DeleteLines(ctx context.Context, owner string) error {
	items, err := d.queryCart(ctx, owner)
	if err != nil {
		return unavailable("clear cart", err)
	}

	for start := 0; start < len(items); start += dynamoBatchLimit {
		end := min(start+dynamoBatchLimit, len(items))
		requests := make([]types.WriteRequest, 0, end-start)
		for _, it := range items[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"owner_id": &types.AttributeValueMemberS{Value: owner},
					"line_key": &types.AttributeValueMemberS{Value: it.LineKey},
				}},
			})
		}

		pending := map[string][]types.WriteRequest{*d.table(DynamoCartsTable): requests}
		for len(pending) > 0 {
			out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return unavailable("clear cart", err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

// ============================================
// Products and testimonials
// ============================================

type dynamoProduct struct {
	ID          string   `dynamodbav:"id"`
	Name        string   `dynamodbav:"name"`
	Price       int64    `dynamodbav:"price"`
	OldPrice    *int64   `dynamodbav:"old_price,omitempty"`
	Category    string   `dynamodbav:"category"`
	Image       string   `dynamodbav:"image,omitempty"`
	ImageURL    string   `dynamodbav:"image_url,omitempty"`
	Description string   `dynamodbav:"description"`
	IsNew       bool     `dynamodbav:"is_new"`
	IsTrending  bool     `dynamodbav:"is_trending"`
	Sizes       []string `dynamodbav:"sizes,omitempty"`
	Colors      []string `dynamodbav:"colors,omitempty"`
	BestForWear string   `dynamodbav:"best_for_wear,omitempty"`
	Gender      string   `dynamodbav:"gender,omitempty"`
	CreatedAt   string   `dynamodbav:"created_at"`
}

func (dp dynamoProduct) toProduct() catalog.Product {
	createdAt, _ := time.Parse(time.RFC3339Nano, dp.CreatedAt)
	p := catalog.Product{
		ID:          dp.ID,
		Name:        dp.Name,
		Price:       dp.Price,
		OldPrice:    dp.OldPrice,
		Category:    dp.Category,
		Image:       dp.Image,
		Description: dp.Description,
		IsNew:       dp.IsNew,
		IsTrending:  dp.IsTrending,
		Sizes:       dp.Sizes,
		Colors:      dp.Colors,
		BestForWear: dp.BestForWear,
		Gender:      dp.Gender,
		CreatedAt:   createdAt,
	}
	if p.Image == "" {
		p.Image = dp.ImageURL
	}
	p.Normalize()
	return p
}

func (d *Dynamo) scanAll(ctx context.Context, table string) ([]map[string]types.AttributeValue, error) {
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{TableName: d.table(table)})
	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// ListProducts scans the table and returns products newest first.
func (d *Dynamo) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	items, err := d.scanAll(ctx, DynamoProductsTable)
	if err != nil {
		return nil, unavailable("list products", err)
	}
	var raw []dynamoProduct
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}

	products := make([]catalog.Product, 0, len(raw))
	for _, dp := range raw {
		products = append(products, dp.toProduct())
	}
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (d *Dynamo) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: d.table(DynamoProductsTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, unavailable("get product", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var dp dynamoProduct
	if err := attributevalue.UnmarshalMap(out.Item, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	p := dp.toProduct()
	return &p, nil
}

type dynamoTestimonial struct {
	ID       string  `dynamodbav:"id"`
	Name     string  `dynamodbav:"name"`
	Role     *string `dynamodbav:"role"`
	Rating   *int    `dynamodbav:"rating"`
	Text     string  `dynamodbav:"text"`
	Avatar   *string `dynamodbav:"avatar"`
	Approved *bool   `dynamodbav:"approved"`
}

func (d *Dynamo) ListTestimonials(ctx context.Context) ([]catalog.TestimonialRecord, error) {
	items, err := d.scanAll(ctx, DynamoTestimonialsTable)
	if err != nil {
		return nil, unavailable("list testimonials", err)
	}
	var raw []dynamoTestimonial
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal testimonials: %w", err)
	}
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].ID < raw[j].ID })

	records := make([]catalog.TestimonialRecord, 0, len(raw))
	for _, t := range raw {
		records = append(records, catalog.TestimonialRecord(t))
	}
	return records, nil
}

// ============================================
// Orders: pk id, GSI owner-index (owner_id, created_at)
// ============================================

// DynamoOrder is the stored order document. The Lambda notifier decodes the
// same shape from the table's stream.
type DynamoOrder struct {
	ID            string            `dynamodbav:"id" json:"id"`
	OwnerID       string            `dynamodbav:"owner_id" json:"owner_id"`
	Email         string            `dynamodbav:"email" json:"email"`
	FirstName     string            `dynamodbav:"first_name" json:"first_name"`
	LastName      string            `dynamodbav:"last_name" json:"last_name"`
	Address       string            `dynamodbav:"address" json:"address"`
	City          string            `dynamodbav:"city" json:"city"`
	ZipCode       string            `dynamodbav:"zip_code" json:"zip_code"`
	Phone         string            `dynamodbav:"phone" json:"phone"`
	Subtotal      int64             `dynamodbav:"subtotal" json:"subtotal"`
	ShippingFee   int64             `dynamodbav:"shipping_fee" json:"shipping_fee"`
	Total         int64             `dynamodbav:"total" json:"total"`
	PaymentMethod string            `dynamodbav:"payment_method" json:"payment_method"`
	Status        string            `dynamodbav:"status" json:"status"`
	CreatedAt     string            `dynamodbav:"created_at" json:"created_at"`
	Items         []DynamoOrderItem `dynamodbav:"items" json:"items"`
}

type DynamoOrderItem struct {
	ProductID string `dynamodbav:"product_id" json:"product_id"`
	Size      string `dynamodbav:"size" json:"size"`
	Color     string `dynamodbav:"color" json:"color"`
	Quantity  int    `dynamodbav:"quantity" json:"quantity"`
	UnitPrice int64  `dynamodbav:"unit_price" json:"unit_price"`
}

func NewDynamoOrder(o *order.Order) DynamoOrder {
	items := make([]DynamoOrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, DynamoOrderItem(it))
	}
	return DynamoOrder{
		ID:            o.ID,
		OwnerID:       o.OwnerID,
		Email:         o.Contact.Email,
		FirstName:     o.Contact.FirstName,
		LastName:      o.Contact.LastName,
		Address:       o.Contact.Address,
		City:          o.Contact.City,
		ZipCode:       o.Contact.ZipCode,
		Phone:         o.Contact.Phone,
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt.UTC().Format(dynamoTimeFormat),
		Items:         items,
	}
}

func (do DynamoOrder) Order() order.Order {
	createdAt, _ := time.Parse(time.RFC3339Nano, do.CreatedAt)
	items := make([]order.Item, 0, len(do.Items))
	for _, it := range do.Items {
		items = append(items, order.Item(it))
	}
	return order.Order{
		ID:      do.ID,
		OwnerID: do.OwnerID,
		Contact: order.Contact{
			Email:     do.Email,
			FirstName: do.FirstName,
			LastName:  do.LastName,
			Address:   do.Address,
			City:      do.City,
			ZipCode:   do.ZipCode,
			Phone:     do.Phone,
		},
		Subtotal:      do.Subtotal,
		ShippingFee:   do.ShippingFee,
		Total:         do.Total,
		PaymentMethod: order.PaymentMethod(do.PaymentMethod),
		Status:        order.Status(do.Status),
		CreatedAt:     createdAt,
		Items:         items,
	}
}

func (d *Dynamo) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrEmptyOrder
	}
	av, err := attributevalue.MarshalMap(NewDynamoOrder(o))
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           d.table(DynamoOrdersTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	return unavailable("create order", err)
}

// ListByOwner reads the owner index newest first.
func (d *Dynamo) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              d.table(DynamoOrdersTable),
		IndexName:              aws.String(DynamoOrdersOwnerIndex),
		KeyConditionExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: ownerID},
		},
		ScanIndexForward: aws.Bool(false),
	})

	orders := []order.Order{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, unavailable("list orders", err)
		}
		var batch []DynamoOrder
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, do := range batch {
			orders = append(orders, do.Order())
		}
	}
	return orders, nil
}

func (d *Dynamo) Get(ctx context.Context, ownerID, id string) (*order.Order, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: d.table(DynamoOrdersTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, unavailable("get order", err)
	}
	if out.Item == nil {
		return nil, order.ErrOrderNotFound
	}
	var do DynamoOrder
	if err := attributevalue.UnmarshalMap(out.Item, &do); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	if do.OwnerID != ownerID {
		return nil, order.ErrOrderNotFound
	}
	o := do.Order()
	return &o, nil
}

// ============================================
// Users: pk email, GSI id-index
// ============================================

type dynamoUser struct {
	Email        string `dynamodbav:"email"`
	ID           string `dynamodbav:"id"`
	Name         string `dynamodbav:"name"`
	PasswordHash string `dynamodbav:"password_hash"`
	CreatedAt    string `dynamodbav:"created_at"`
}

func (du dynamoUser) toUser() *user.User {
	createdAt, _ := time.Parse(time.RFC3339Nano, du.CreatedAt)
	return &user.User{ID: du.ID, Email: du.Email, Name: du.Name, PasswordHash: du.PasswordHash, CreatedAt: createdAt}
}

func (d *Dynamo) CreateUser(ctx context.Context, u *user.User) error {
	av, err := attributevalue.MarshalMap(dynamoUser{
		Email:        u.Email,
		ID:           u.ID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC().Format(dynamoTimeFormat),
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           d.table(DynamoUsersTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return user.ErrEmailTaken
	}
	return unavailable("create user", err)
}

func (d *Dynamo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: d.table(DynamoUsersTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, unavailable("get user", err)
	}
	if out.Item == nil {
		return nil, user.ErrUserNotFound
	}
	var du dynamoUser
	if err := attributevalue.UnmarshalMap(out.Item, &du); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return du.toUser(), nil
}

func (d *Dynamo) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	out, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              d.table(DynamoUsersTable),
		IndexName:              aws.String(DynamoUsersIDIndex),
		KeyConditionExpression: aws.String("id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: id},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, unavailable("get user", err)
	}
	if len(out.Items) == 0 {
		return nil, user.ErrUserNotFound
	}
	var du dynamoUser
	if err := attributevalue.UnmarshalMap(out.Items[0], &du); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return du.toUser(), nil
}
