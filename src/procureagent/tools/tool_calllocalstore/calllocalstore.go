package tool_calllocalstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/procureagent/toolsutil"
	"github.com/elee1766/procurebot/src/storelocator"
	"github.com/elee1766/procurebot/src/voicecall"
)

// Tool name constant
const Name = "call_local_store"

const callLocalStorePrompt = `Contacts the local store by phone to request items that are not available through existing contracts. Use when contract limits are exceeded or items are not in the contract database. Blocks until the call finishes and returns the call transcript when available.`

// DefaultVendor names the store when neither configuration nor the locator provide one.
const DefaultVendor = "the local store"

// CallLocalStoreInput represents the input for contacting the local store
type CallLocalStoreInput struct {
	ItemName string `json:"item_name" required:"true" description:"The name of the item to order from the local store" validate:"required"`
	Quantity int64  `json:"quantity" required:"true" minimum:"1" description:"The quantity needed" validate:"gt=0"`
}

// Caller places an outbound call and waits for its outcome.
type Caller interface {
	Call(ctx context.Context, call voicecall.CallRequest) (*voicecall.CallResult, error)
}

// StoreFinder looks up the nearest store to the delivery site.
type StoreFinder interface {
	Nearest(ctx context.Context) (*storelocator.Store, error)
}

// Options configures the outreach.
type Options struct {
	// Caller is nil when voice calls are not configured; the tool then only
	// reports the attempt.
	Caller Caller
	// Finder picks the vendor when VendorName is empty.
	Finder StoreFinder

	VendorName  string
	ToNumber    string
	SiteAddress string
	TargetPrice string
	// Timeout bounds the whole outreach including store lookup.
	Timeout time.Duration
}

func makeCallLocalStoreHandler(opts Options) agent.GenericToolHandler[CallLocalStoreInput] {
	return func(ctx context.Context, input CallLocalStoreInput) (string, error) {
		logger := toolsutil.GetLogger()
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		vendor, toNumber := opts.VendorName, opts.ToNumber
		if vendor == "" && opts.Finder != nil {
			store, err := opts.Finder.Nearest(ctx)
			if err != nil {
				logger.Warn("store lookup failed", "error", err)
			} else {
				vendor = store.Name
				if toNumber == "" {
					toNumber = store.Phone
				}
				logger.Info("nearest store", "name", store.Name, "distance_m", int(store.Distance))
			}
		}
		if vendor == "" {
			vendor = DefaultVendor
		}

		order := fmt.Sprintf("%d x %s", input.Quantity, input.ItemName)
		if opts.Caller == nil {
			return fmt.Sprintf("Local store outreach attempted for %d units of '%s' from %s. Voice calls are not configured, so the order must be placed manually.",
				input.Quantity, input.ItemName, vendor), nil
		}

		result, err := opts.Caller.Call(ctx, voicecall.CallRequest{
			ToNumber:    toNumber,
			OrderList:   order,
			TargetPrice: opts.TargetPrice,
			SiteAddress: opts.SiteAddress,
			VendorName:  vendor,
		})
		if err != nil {
			logger.Warn("local store call failed", "vendor", vendor, "error", err)
			return attempted(input, vendor, result, err), nil
		}
		if !result.Success {
			return attempted(input, vendor, result, fmt.Errorf("call ended with status %s", result.Status)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Local store %s contacted for %d units of '%s'. Call %s completed.", vendor, input.Quantity, input.ItemName, result.ConversationID)
		if result.Transcript != "" {
			b.WriteString("\n\nTranscript:\n")
			b.WriteString(result.Transcript)
		}
		return b.String(), nil
	}
}

func attempted(input CallLocalStoreInput, vendor string, result *voicecall.CallResult, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attempted to contact %s for %d units of '%s', but the call did not complete: %v. Please follow up manually.",
		vendor, input.Quantity, input.ItemName, err)
	if result != nil && result.Transcript != "" {
		b.WriteString("\n\nPartial transcript:\n")
		b.WriteString(result.Transcript)
	}
	return b.String()
}

// Tool returns the call_local_store tool definition
func Tool(opts Options) (agent.Tool, error) {
	return agent.NewGenericTool(Name, callLocalStorePrompt, agent.EffectMutate, makeCallLocalStoreHandler(opts))
}
