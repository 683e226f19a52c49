package marketplace

import "encoding/xml"

// tokenResponse is the JSON body returned by the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenResponseXML is the legacy XML shape of the same response.
type tokenResponseXML struct {
	XMLName     xml.Name `xml:"OAuthTokenDTO"`
	AccessToken string   `xml:"accessToken"`
	TokenType   string   `xml:"tokenType"`
	ExpiresIn   int      `xml:"expiresIn"`
}

// FeedAck is the acknowledgment returned by a feed submission.
type FeedAck struct {
	FeedID string `json:"feedId"`
}

// IngestionError is one marketplace-reported error on an item.
type IngestionError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ItemIngestion is the per-SKU outcome inside a feed status response.
type ItemIngestion struct {
	SKU             string `json:"sku"`
	WPID            string `json:"wpid,omitempty"`
	IngestionStatus string `json:"ingestionStatus"`
	IngestionErrors *struct {
		IngestionError []IngestionError `json:"ingestionError"`
	} `json:"ingestionErrors,omitempty"`
}

// FirstError returns the first ingestion error detail, if any.
func (i *ItemIngestion) FirstError() string {
	if i.IngestionErrors == nil || len(i.IngestionErrors.IngestionError) == 0 {
		return ""
	}
	e := i.IngestionErrors.IngestionError[0]
	if e.Code != "" {
		return e.Code + ": " + e.Description
	}
	return e.Description
}

// FeedStatusResponse is one page of a feed's processing status. The
// marketplace caps ItemDetails at 50 items per page; totals refer to the
// whole feed regardless of page.
type FeedStatusResponse struct {
	FeedID         string `json:"feedId"`
	FeedStatus     string `json:"feedStatus"`
	ItemsReceived  int    `json:"itemsReceived"`
	ItemsSucceeded int    `json:"itemsSucceeded"`
	ItemsFailed    int    `json:"itemsFailed"`
	ItemDetails    struct {
		ItemIngestionStatus []ItemIngestion `json:"itemIngestionStatus"`
	} `json:"itemDetails"`
}

// Marketplace feed status values.
const (
	FeedStatusReceived   = "RECEIVED"
	FeedStatusInProgress = "INPROGRESS"
	FeedStatusProcessed  = "PROCESSED"
	FeedStatusError      = "ERROR"
)

// Marketplace per-item ingestion status values.
const (
	IngestSuccess      = "SUCCESS"
	IngestInProgress   = "INPROGRESS"
	IngestDataError    = "DATA_ERROR"
	IngestSystemError  = "SYSTEM_ERROR"
	IngestTimeoutError = "TIMEOUT_ERROR"
)

// InventoryQuantity is the quantity element of an inventory update.
type InventoryQuantity struct {
	Unit   string `json:"unit"`
	Amount int    `json:"amount"`
}

// InventoryUpdate is the body of a single-SKU inventory push.
type InventoryUpdate struct {
	SKU      string            `json:"sku"`
	Quantity InventoryQuantity `json:"quantity"`
}

// InventoryFeed is the bulk inventory document submitted as a feed.
type InventoryFeed struct {
	InventoryHeader struct {
		Version string `json:"version"`
	} `json:"InventoryHeader"`
	Inventory []InventoryUpdate `json:"Inventory"`
}

// NewInventoryFeed builds a bulk inventory feed document.
func NewInventoryFeed(updates []InventoryUpdate) *InventoryFeed {
	f := &InventoryFeed{Inventory: updates}
	f.InventoryHeader.Version = "1.4"
	return f
}

// apiErrorResponse is the common error envelope on 4xx/5xx responses.
type apiErrorResponse struct {
	Errors struct {
		Error []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
			Info        string `json:"info"`
		} `json:"error"`
	} `json:"errors"`
	Error []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
