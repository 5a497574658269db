package ocr

import (
	"regexp"
	"strings"
)

type itemBucket struct {
	category ItemCategory
	keywords []string
}

// itemBuckets are checked in order; the first bucket with a keyword hit wins
var itemBuckets = []itemBucket{
	{ItemGiftCard, []string{"gift card", "giftcard", "gift crd"}},
	{ItemFood, []string{
		"burger", "fries", "fry", "meal", "nugget", "chicken", "sandwich",
		"pizza", "salad", "taco", "burrito", "wrap", "pie", "cookie", "muffin",
		"bagel", "donut", "breakfast", "hash brown", "egg", "bacon", "sausage",
		"steak", "pasta", "soup", "rice", "big mac", "filet", "fish", "hotcake",
		"pancake", "waffle", "toast", "bread", "cheese", "sundae", "mcflurry",
		"cone", "dessert", "appetizer", "entree", "wings", "ribs", "shrimp",
		"noodle", "huckleberry", "omelet", "biscuit",
	}},
	{ItemBeverage, []string{
		"coffee", "latte", "cappuccino", "espresso", "mocha", "tea", "soda",
		"coke", "sprite", "pepsi", "fanta", "dr pepper", "juice", "drink",
		"water", "milk", "shake", "smoothie", "lemonade", "beer", "wine",
		"cocktail",
	}},
	{ItemAutomotive, []string{"fuel", "gasoline", "unleaded", "diesel", "motor oil", "car wash", "gas"}},
	{ItemHealthcare, []string{
		"medicine", "pharmacy", "rx", "tablet", "capsule", "vitamin", "aspirin",
		"ibuprofen", "acetaminophen", "tylenol", "advil", "bandage", "cough",
		"allergy",
	}},
}

// itemKeywords is every keyword of every item bucket
var itemKeywords = func() []string {
	var all []string
	for _, b := range itemBuckets {
		all = append(all, b.keywords...)
	}
	return all
}()

// categorizeItem assigns an item category by keyword, defaulting to General
func categorizeItem(name string) ItemCategory {
	lower := strings.ToLower(name)
	for _, b := range itemBuckets {
		if containsAny(lower, b.keywords) {
			return b.category
		}
	}
	return ItemGeneral
}

type merchantBucket struct {
	category ReceiptCategory
	pattern  *regexp.Regexp
}

func wordPrefixPattern(keywords ...string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`)
}

var merchantBuckets = []merchantBucket{
	{CategoryHealthcare, wordPrefixPattern("pharmacy", "cvs", "walgreens", "rite aid", "drug", "clinic")},
	{CategoryGroceries, wordPrefixPattern(
		"walmart", "wal-mart", "target", "costco", "kroger", "safeway", "whole foods",
		"trader joe", "aldi", "publix", "grocery", "supermarket", "market",
	)},
	{CategoryFoodDining, wordPrefixPattern(
		"mcdonald", "restaurant", "burger", "pizza", "cafe", "coffee", "starbucks",
		"subway", "taco", "grill", "diner", "kitchen", "wendy", "chipotle", "dunkin",
		"bakery", "bistro", "deli", "pizzeria",
	)},
	{CategoryTransportation, wordPrefixPattern(
		"shell", "chevron", "exxon", "mobil", "bp", "speedway", "citgo", "sunoco",
		"valero", "gas", "fuel",
	)},
}

// itemToReceiptCategory is used for the item majority vote
var itemToReceiptCategory = map[ItemCategory]ReceiptCategory{
	ItemFood:       CategoryFoodDining,
	ItemBeverage:   CategoryFoodDining,
	ItemHealthcare: CategoryHealthcare,
	ItemAutomotive: CategoryTransportation,
	ItemGiftCard:   CategoryShopping,
	ItemGeneral:    CategoryShopping,
}

// categorizeReceipt classifies by merchant name first, then by the most
// common item category. Ties go to the category seen first.
func categorizeReceipt(merchant string, items []ReceiptItem) ReceiptCategory {
	if merchant != UnknownMerchant {
		for _, b := range merchantBuckets {
			if b.pattern.MatchString(merchant) {
				return b.category
			}
		}
	}

	counts := make(map[ReceiptCategory]int)
	var order []ReceiptCategory
	for _, item := range items {
		c, ok := itemToReceiptCategory[item.Category]
		if !ok {
			c = CategoryShopping
		}
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best := CategoryOther
	bestCount := 0
	for _, c := range order {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}
