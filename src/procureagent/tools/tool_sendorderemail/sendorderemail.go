package tool_sendorderemail

import (
	"context"
	"fmt"
	"strings"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/notify"
	"github.com/elee1766/procurebot/src/procureagent/toolsutil"
)

// Tool name constant
const Name = "send_order_email"

const sendOrderEmailPrompt = `Sends a purchase order email for a contracted product to its supplier. Looks up the product and supplier in the ledger and includes unit price, total, and delivery address. Only use after the user has explicitly confirmed the order, and before recording it with update_used.`

// SendOrderEmailInput represents the input for sending an order
type SendOrderEmailInput struct {
	ProductID string `json:"product_id" required:"true" description:"The product ID from the contracts ledger (e.g., 'C001')" validate:"required"`
	Quantity  int64  `json:"quantity" required:"true" minimum:"1" description:"The quantity to order" validate:"gt=0"`
}

// Sender delivers mail.
type Sender interface {
	Send(ctx context.Context, to []string, msg notify.Message) error
}

// Options configures the tool.
type Options struct {
	Sender Sender
	// FallbackRecipient receives orders for suppliers without an email address.
	FallbackRecipient string
	SiteAddress       string
	// Notifier is told about every order that was sent. Failures are logged.
	Notifier notify.Notifier
}

// Order is a rendered purchase order.
type Order struct {
	Contract  ledger.Contract
	Supplier  ledger.Supplier
	Quantity  int64
	Recipient string
	Message   notify.Message
}

// Total is the order value in EUR.
func (o *Order) Total() float64 { return float64(o.Quantity) * o.Contract.UnitPriceEUR }

// BuildOrder resolves the contract and supplier and renders the email.
func BuildOrder(store *ledger.Store, productID string, quantity int64, opts Options) (*Order, error) {
	c, err := store.Contract(productID)
	if err != nil {
		return nil, toolsutil.FromLedger(err)
	}
	if quantity > c.Remaining() {
		qe := &ledger.QuantityExceededError{Requested: quantity, Available: c.Remaining(), Total: c.Quantity, Used: c.Used}
		return nil, toolsutil.FromLedger(qe)
	}

	o := &Order{Contract: c, Quantity: quantity, Supplier: ledger.Supplier{SupplierID: c.SupplierID}}
	if c.SupplierID != "" {
		if s, err := store.Supplier(c.SupplierID); err == nil {
			o.Supplier = s
		} else {
			toolsutil.GetLogger().Debug("supplier lookup failed", "supplier_id", c.SupplierID, "error", err)
		}
	}
	o.Recipient = o.Supplier.Email
	if o.Recipient == "" {
		o.Recipient = opts.FallbackRecipient
	}
	if o.Recipient == "" {
		return nil, toolsutil.NewToolError(toolsutil.NotFound,
			fmt.Sprintf("No email address for supplier '%s' of product %s", c.SupplierID, c.ProductID), nil)
	}

	supplierName := o.Supplier.Name
	if supplierName == "" {
		supplierName = "Sir or Madam"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", supplierName)
	b.WriteString("we would like to place the following order under our existing contract:\n\n")
	fmt.Fprintf(&b, "Product:     %s (ID: %s)\n", c.ProductName, c.ProductID)
	fmt.Fprintf(&b, "Quantity:    %d\n", quantity)
	fmt.Fprintf(&b, "Unit price:  %.2f EUR\n", c.UnitPriceEUR)
	fmt.Fprintf(&b, "Total:       %.2f EUR\n", o.Total())
	if opts.SiteAddress != "" {
		fmt.Fprintf(&b, "\nDelivery address:\n%s\n", opts.SiteAddress)
	}
	b.WriteString("\nPlease confirm the order and expected delivery date.\n\nKind regards\nProcurement")

	o.Message = notify.Message{
		Subject: fmt.Sprintf("Purchase order: %d x %s (%s)", quantity, c.ProductName, c.ProductID),
		Body:    b.String(),
	}
	return o, nil
}

func makeSendOrderEmailHandler(store *ledger.Store, opts Options) agent.GenericToolHandler[SendOrderEmailInput] {
	return func(ctx context.Context, input SendOrderEmailInput) (string, error) {
		logger := toolsutil.GetLogger()

		order, err := BuildOrder(store, input.ProductID, input.Quantity, opts)
		if err != nil {
			return "", err
		}
		if opts.Sender == nil {
			return "", toolsutil.NewToolError(toolsutil.ExternalServiceError, "Email is not configured; the order was not sent", nil)
		}
		if err := opts.Sender.Send(ctx, []string{order.Recipient}, order.Message); err != nil {
			logger.Warn("order email failed", "product_id", input.ProductID, "recipient", order.Recipient, "error", err)
			return "", toolsutil.NewToolError(toolsutil.ExternalServiceError, fmt.Sprintf("Failed to send order email: %v", err), err)
		}
		logger.Info("order email sent", "product_id", input.ProductID, "quantity", input.Quantity, "recipient", order.Recipient)

		if opts.Notifier != nil {
			notice := notify.Message{
				Subject: "Order sent",
				Body:    fmt.Sprintf("%s sent to %s (%.2f EUR)", order.Message.Subject, order.Recipient, order.Total()),
			}
			if err := opts.Notifier.Notify(ctx, notice); err != nil {
				logger.Warn("order notification failed", "error", err)
			}
		}

		return fmt.Sprintf("Order email sent to %s\nProduct: %s (ID: %s)\nQuantity: %d\nTotal: %.2f EUR",
			order.Recipient, order.Contract.ProductName, order.Contract.ProductID, order.Quantity, order.Total()), nil
	}
}

// Tool returns the send_order_email tool definition
func Tool(store *ledger.Store, opts Options) (agent.Tool, error) {
	return agent.NewGenericTool(Name, sendOrderEmailPrompt, agent.EffectMutate, makeSendOrderEmailHandler(store, opts))
}
