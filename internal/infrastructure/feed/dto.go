package feed

import "github.com/shopspring/decimal"

const topicPrefix = "prices."

// wsControl - ответ на ping/subscribe, содержит поле "op"
type wsControl struct {
	Op      string `json:"op"`
	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
}

// wsPriceEvent соответствует структуре сообщения с ценами
type wsPriceEvent struct {
	Topic string    `json:"topic"`
	Data  []wsPrice `json:"data"`
}

type wsPrice struct {
	SKU   string              `json:"sku"`
	Price decimal.NullDecimal `json:"price"` // Valid=false, если поле пустое или null
	TS    int64               `json:"ts"`    // Unix ms, может отсутствовать
}

type wsRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}
