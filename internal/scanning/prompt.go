package scanning

import "strings"

// receiptOCRPrompt is the shared transcription prompt used by the vision models
const receiptOCRPrompt = `You are reading a photo or scan of a store receipt. Transcribe every piece of printed text exactly as it appears.

Rules:
- Output plain text only, one receipt line per output line, top to bottom
- Keep numbers, prices, dates and punctuation exactly as printed
- Do not summarize, translate, correct spelling or add commentary
- Do not use markdown`

// receiptParsePrompt is the shared structured-extraction prompt used by the
// text models. The receipt text is appended after it.
const receiptParsePrompt = `You are given the OCR text of a store receipt. Extract the receipt into JSON with exactly this shape:
{
  "merchant": "store or restaurant name",
  "address": "street address or empty string",
  "phone": "phone number or empty string",
  "date": "YYYY-MM-DD",
  "time": "HH:MM in 24 hour time or empty string",
  "total": 0.00,
  "subtotal": 0.00,
  "tax": 0.00,
  "tip": null,
  "discount": null,
  "items": [
    {"name": "item name", "price": 0.00, "quantity": 1, "category": "Food", "confidence": 0.9}
  ],
  "payment_method": {"method": "Card", "card_brand": "Visa", "last_four_digits": "1234", "amount": 0.00, "confidence": 0.9},
  "category": "Food & Dining",
  "confidence": 0.9
}

Important:
- Amounts are numbers (not strings) in dollars and cents; use null for amounts that are not on the receipt
- item category is one of: Food, Beverage, General, Healthcare, Automotive, Gift Card
- payment method is one of: Cash, Card, Gift Card, Unknown
- receipt category is one of: Food & Dining, Groceries, Healthcare, Transportation, Shopping, Other
- confidence values are between 0 and 1 and describe how sure you are of each part
- Return ONLY the JSON object, with no text before or after it and no markdown code blocks

Receipt text:
`

func parsePrompt(text string) string {
	return receiptParsePrompt + strings.TrimSpace(text)
}
