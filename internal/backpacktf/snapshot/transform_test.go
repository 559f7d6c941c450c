package snapshot

import (
	"encoding/json"
	"testing"
)

func baseListing() snapshotListing {
	return snapshotListing{
		Intent:     "sell",
		SteamID:    "76561198000000001",
		Bump:       1700000500,
		Timestamp:  1700000000,
		Details:    "selling",
		Currencies: map[string]float64{"metal": 66.55, "keys": 1},
		Buyout:     1,
		Offers:     1,
		Item:       snapshotItem{ID: json.Number("11223344")},
	}
}

func TestFormatListingSell(t *testing.T) {
	l := baseListing()
	l.Item.Attributes = []snapshotAttribute{
		{Defindex: "142", FloatValue: "3100495"},
		{Defindex: "1009"},                          // spell without value defaults to 1
		{Defindex: "1004", FloatValue: "0"},         // Die Job
		{Defindex: "380", FloatValue: "36"},         // strange part
		{Defindex: "2013", FloatValue: "2002"},      // killstreaker
		{Defindex: "2014", FloatValue: "3"},         // sheen
		{Defindex: "134", FloatValue: "13"},         // unrelated attribute, ignored
	}

	doc, err := formatListing(l, 440)
	if err != nil {
		t.Fatalf("formatListing returned error: %v", err)
	}
	if doc == nil {
		t.Fatal("expected document, got nil")
	}

	if doc.ID != "11223344" {
		t.Errorf("unexpected id: %q", doc.ID)
	}
	if doc.ListedAt != 1700000000 || doc.BumpAt != 1700000500 {
		t.Errorf("timestamps not mapped: %d, %d", doc.ListedAt, doc.BumpAt)
	}
	if !doc.BuyoutOnly || !doc.TradeOffersPreferred {
		t.Error("buyout/offers flags not mapped")
	}

	if doc.Paint == nil || doc.Paint.ID != 3100495 || doc.Paint.Name != "A Color Similar to Slate" {
		t.Errorf("paint not resolved: %+v", doc.Paint)
	}
	if len(doc.Spells) != 2 {
		t.Fatalf("expected 2 spells, got %+v", doc.Spells)
	}
	if doc.Spells[0].Name != "Exorcism" || doc.Spells[0].ID != 1 {
		t.Errorf("default spell value not applied: %+v", doc.Spells[0])
	}
	if doc.Spells[1].Name != "Die Job" || doc.Spells[1].ID != 0 {
		t.Errorf("explicit zero spell value lost: %+v", doc.Spells[1])
	}
	if len(doc.StrangeParts) != 1 || doc.StrangeParts[0].Name != "Sappers Removed" {
		t.Errorf("strange part not resolved: %+v", doc.StrangeParts)
	}
	if doc.Killstreaker == nil || doc.Killstreaker.Name != "Fire Horns" {
		t.Errorf("killstreaker not resolved: %+v", doc.Killstreaker)
	}
	if doc.Sheen == nil || doc.Sheen.Name != "Manndarin" {
		t.Errorf("sheen not resolved: %+v", doc.Sheen)
	}
}

func TestFormatListingBuyIntent(t *testing.T) {
	l := baseListing()
	l.Intent = "buy"

	doc, err := formatListing(l, 440)
	if err != nil {
		t.Fatalf("formatListing returned error: %v", err)
	}
	if doc.ID != "buy_440_76561198000000001" {
		t.Errorf("unexpected buy id: %q", doc.ID)
	}
}

func TestFormatListingFiltersUSD(t *testing.T) {
	l := baseListing()
	l.Currencies = map[string]float64{"usd": 2.49}

	doc, err := formatListing(l, 440)
	if err != nil {
		t.Fatalf("formatListing returned error: %v", err)
	}
	if doc != nil {
		t.Errorf("expected usd listing to be filtered, got %+v", doc)
	}
}

func TestFormatListingUnknownAttribute(t *testing.T) {
	l := baseListing()
	l.Item.Attributes = []snapshotAttribute{{Defindex: "142", FloatValue: "12345"}}

	if _, err := formatListing(l, 440); err == nil {
		t.Error("expected error for unknown paint value")
	}

	l.Item.Attributes = []snapshotAttribute{{Defindex: "2014", FloatValue: "999"}}
	if _, err := formatListing(l, 440); err == nil {
		t.Error("expected error for unknown sheen value")
	}
}

func TestAttributeValueCoercion(t *testing.T) {
	if v, ok, err := attributeValue(""); v != 0 || ok || err != nil {
		t.Errorf("empty value: got (%d, %v, %v)", v, ok, err)
	}
	if v, ok, err := attributeValue("3100495"); v != 3100495 || !ok || err != nil {
		t.Errorf("integer value: got (%d, %v, %v)", v, ok, err)
	}
	// Whole floats collapse to their integer key.
	if v, ok, err := attributeValue("3100495.0"); v != 3100495 || !ok || err != nil {
		t.Errorf("whole float value: got (%d, %v, %v)", v, ok, err)
	}
	if _, _, err := attributeValue("1.5"); err == nil {
		t.Error("expected error for fractional value")
	}
	if _, _, err := attributeValue("not-a-number"); err == nil {
		t.Error("expected error for garbage value")
	}
}
