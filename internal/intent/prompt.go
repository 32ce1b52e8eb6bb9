package intent

import (
	"fmt"
	"strings"
)

// exemplarContext carries the grounding fields loaded from the most
// similar historical transaction.
type exemplarContext struct {
	PreviousDescription string
	TypicalAmount       string
	CommonSource        string
	CommonDestination   string
	CommonCategory      string
	CommonTags          []string
}

// buildPrompt composes the single-turn extraction prompt: the payload
// shape, the full reference context, the user message with exemplar
// grounding, and the field-inference rules. format selects the output
// contract the model is instructed to follow.
func buildPrompt(format, contextBlock, userInput string, userTags []string, exemplar *exemplarContext) string {
	var b strings.Builder

	b.WriteString("You are a finance assistant that generates a structured Firefly III transaction.\n\n")
	b.WriteString("-----------\n\n")

	b.WriteString("## FINAL Firefly Payload Format:\n\n")
	b.WriteString("payload = {\n")
	b.WriteString("  \"transactions\": [\n")
	b.WriteString("    {\n")
	b.WriteString("      \"type\": \"(string: 'bill'|'withdrawal'|'transfer'|'deposit')\",\n")
	b.WriteString("      \"amount\": \"(string or number)\",\n")
	b.WriteString("      \"description\": \"(short descriptive text)\",\n")
	b.WriteString("      \"source_id\": \"(number, or unknown if not inferred)\",\n")
	b.WriteString("      \"destination_id\": \"(number, or unknown if not inferred)\",\n")
	b.WriteString("      \"currency_code\": \"(string, e.g. 'JPY' or 'USD')\",\n")
	b.WriteString("      \"date\": \"(string: 'YYYY-MM-DD', always today's date)\",\n")
	b.WriteString("      \"category_name\": \"(string)\",\n")
	b.WriteString("      \"bill_id\": \"(number, or unknown if not a bill payment)\",\n")
	b.WriteString("      \"tags\": \"(array of strings, relevant to the transaction, e.g. 'shopping', 'amazon')\",\n")
	b.WriteString("      \"notes\": \"Created by Firefly Assistant\"\n")
	b.WriteString("    }\n")
	b.WriteString("  ]\n")
	b.WriteString("}\n\n")
	b.WriteString("-----------\n\n")

	b.WriteString("## KNOWN ACCOUNTS:\n")
	b.WriteString("These are the user's existing Firefly accounts (name → ID). If the user input references any of these names (case-insensitive), set the matching ID accordingly.\n\n")
	b.WriteString(contextBlock)
	b.WriteString("\n-----------\n\n")

	b.WriteString("## INPUT DATA:\n\n")
	b.WriteString("1) **User message**:\n")
	b.WriteString(userInput + "\n\n")
	b.WriteString("2) **Similar transaction context**:\n")
	if exemplar != nil {
		fmt.Fprintf(&b, "  - previous_description: %s\n", exemplar.PreviousDescription)
		fmt.Fprintf(&b, "  - typical_amount: %s\n", exemplar.TypicalAmount)
		fmt.Fprintf(&b, "  - common_source: %s\n", exemplar.CommonSource)
		fmt.Fprintf(&b, "  - common_destination: %s\n", exemplar.CommonDestination)
		fmt.Fprintf(&b, "  - common_category: %s\n", exemplar.CommonCategory)
		fmt.Fprintf(&b, "  - common_tags: %s\n", strings.Join(exemplar.CommonTags, ", "))
	}
	b.WriteString("\n-----------\n\n")

	b.WriteString("## INSTRUCTIONS:\n\n")
	b.WriteString("1) Determine \"type\" from user context:\n")
	b.WriteString("  - \"withdrawal\" if expense or bill\n")
	b.WriteString("  - \"deposit\" if money in\n")
	b.WriteString("  - \"transfer\" if moving between personal accounts\n\n")
	b.WriteString("2) If the user doesn't specify \"amount\" or \"source_id\"/\"destination_id\", try to infer from context or from the known accounts list. If still unknown, mark them in \"missing_info\".\n")
	b.WriteString("  - \"withdrawal\" and bill usually only have source id\n")
	b.WriteString("  - \"deposit\" usually only have destination id\n")
	b.WriteString("  - \"transfer\" has both\n\n")
	b.WriteString("3) \"currency_code\":\n")
	b.WriteString("  - \"JPY\" if user says \"yen\"\n")
	b.WriteString("  - \"USD\" if user says \"dollar\" or if uncertain\n\n")
	b.WriteString("4) \"description\":\n")
	b.WriteString("  - Make it more descriptive than the user's raw input if possible.\n")
	b.WriteString("  - Possibly incorporate context from \"previous_description\".\n\n")
	b.WriteString("5) \"tags\":\n")
	fmt.Fprintf(&b, "  - Always include user-specified tags: %s.\n", renderUserTags(userTags))
	b.WriteString("  - If no user-specified tags, use only tags from \"KNOWN TAGS\" (strict matching).\n\n")
	b.WriteString("6) \"category_name\":\n")
	b.WriteString("  - If user or context suggests a category, fill it in. Else, can remain empty.\n\n")
	b.WriteString("7) \"notes\":\n")
	b.WriteString("  - Always \"Created by Firefly Assistant\".\n\n")
	b.WriteString("8) \"date\":\n")
	b.WriteString("  - Always use today's date.\n\n")
	b.WriteString("9) \"bill_id\":\n")
	b.WriteString("  - If the transaction is a bill payment, include the bill ID strictly from the known bills list.\n\n")

	if format == FormatKeyValue {
		writeKeyValueContract(&b)
	} else {
		writeJSONContract(&b)
	}

	return b.String()
}

func writeJSONContract(b *strings.Builder) {
	b.WriteString("10) Output must be a **valid JSON** object with exactly these top-level keys:\n")
	b.WriteString("{\n")
	b.WriteString("  \"type\": \"string\",\n")
	b.WriteString("  \"amount\": \"string\",\n")
	b.WriteString("  \"description\": \"string\",\n")
	b.WriteString("  \"source_id\": \"string or number\",\n")
	b.WriteString("  \"destination_id\": \"string or number\",\n")
	b.WriteString("  \"currency_code\": \"string\",\n")
	b.WriteString("  \"date\": \"string (YYYY-MM-DD)\",\n")
	b.WriteString("  \"category_name\": \"string\",\n")
	b.WriteString("  \"tags\": [\"array\",\"of\",\"strings\"],\n")
	b.WriteString("  \"missing_info\": [\"array\",\"of\",\"strings\"],\n")
	b.WriteString("  \"bill_id\": \"string or number\"\n")
	b.WriteString("}\n\n")
	b.WriteString("NOTE: \"missing_info\" is for any fields you truly cannot infer.\n")
	b.WriteString("If \"source_id\" is unknown, put \"source_id\" in there, etc.\n\n")
	b.WriteString("Return ONLY that JSON object, with NO extra keys.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n\n")
	b.WriteString("Example valid output:\n")
	b.WriteString("{\n")
	b.WriteString("  \"type\": \"deposit\",\n")
	b.WriteString("  \"amount\": \"1000\",\n")
	b.WriteString("  \"description\": \"Topup to PayPay account\",\n")
	b.WriteString("  \"source_id\": 1,\n")
	b.WriteString("  \"destination_id\": 16,\n")
	b.WriteString("  \"currency_code\": \"USD\",\n")
	b.WriteString("  \"date\": \"2025-06-01\",\n")
	b.WriteString("  \"category_name\": \"Topup\",\n")
	b.WriteString("  \"tags\": [\"paypay\", \"foramazon\"],\n")
	b.WriteString("  \"missing_info\": [],\n")
	b.WriteString("  \"bill_id\": \"unknown\"\n")
	b.WriteString("}\n\n")
	b.WriteString("-----------\n\n")
	b.WriteString("## TASK:\n")
	b.WriteString("Return exactly one JSON object following the specification above.\n")
}

func writeKeyValueContract(b *strings.Builder) {
	b.WriteString("10) Output multiline key=value pairs, one per line, with no extra text, using exactly these keys:\n")
	b.WriteString("  - type\n")
	b.WriteString("  - amount\n")
	b.WriteString("  - description\n")
	b.WriteString("  - source_id\n")
	b.WriteString("  - destination_id\n")
	b.WriteString("  - currency_code\n")
	b.WriteString("  - date\n")
	b.WriteString("  - category_name\n")
	b.WriteString("  - tags (comma-separated if multiple)\n")
	b.WriteString("  - missing_info (comma-separated if multiple)\n")
	b.WriteString("  - bill_id\n\n")
	b.WriteString("NOTE: \"missing_info\" is for any fields you truly cannot infer.\n")
	b.WriteString("If \"source_id\" is unknown, put source_id in there, etc.\n\n")
	b.WriteString("Example valid output:\n")
	b.WriteString("type=withdrawal\n")
	b.WriteString("amount=30000\n")
	b.WriteString("description=Apartment Payment\n")
	b.WriteString("source_id=1\n")
	b.WriteString("destination_id=unknown\n")
	b.WriteString("currency_code=USD\n")
	b.WriteString("date=2025-06-01\n")
	b.WriteString("category_name=Housing\n")
	b.WriteString("tags=housing,rent\n")
	b.WriteString("missing_info=destination_id\n")
	b.WriteString("bill_id=unknown\n\n")
	b.WriteString("-----------\n\n")
	b.WriteString("## TASK:\n")
	b.WriteString("Return only the key=value lines following the specification above.\n")
}

func renderUserTags(tags []string) string {
	if len(tags) == 0 {
		return "(none)"
	}
	return strings.Join(tags, ", ")
}
