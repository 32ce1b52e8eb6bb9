package intent

import (
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/domain"
)

// extractTagHints splits an explicit "tags:" marker out of the raw input.
// The returned tags are lower-cased and trimmed; they are authoritative
// and always survive into the final proposal.
func extractTagHints(input string) (string, []string) {
	before, after, ok := strings.Cut(input, "tags:")
	if !ok {
		return input, nil
	}
	var tags []string
	for _, tag := range strings.Split(after, ",") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return strings.TrimSpace(before), tags
}

// assembleProposal finalizes the model's field map into a proposal:
// defensive defaults, reference resolution through the lookup snapshot,
// the user-tag union and the forced current date.
func assembleProposal(fields map[string]interface{}, userInput string, userTags []string, snap *lookupSnapshot, exemplar *domain.ExemplarMatch, now time.Time) *domain.Proposal {
	sourceRef := refField(fields, "source_id")
	destinationRef := refField(fields, "destination_id")
	billRef := refField(fields, "bill_id")

	p := &domain.Proposal{
		Type:         domain.TransactionType(stringField(fields, "type", string(domain.TypeWithdrawal))),
		Amount:       amountField(fields, "amount"),
		Description:  stringField(fields, "description", userInput),
		CurrencyCode: stringField(fields, "currency_code", "USD"),

		// Whatever date the model produced is discarded.
		Date: now.Format("2006-01-02"),

		Source:          sourceRef,
		SourceName:      snap.AccountName(sourceRef),
		Destination:     destinationRef,
		DestinationName: snap.AccountName(destinationRef),
		Bill:            billRef,
		BillName:        snap.BillName(billRef),

		CategoryName: stringField(fields, "category_name", ""),
		Tags:         unionTags(userTags, stringListField(fields, "tags")),
		MissingInfo:  stringListField(fields, "missing_info"),

		Exemplar: exemplar,
	}

	p.MissingInfo = reconcileMissingInfo(p)
	return p
}

// reconcileMissingInfo appends the reference fields the transaction type
// requires but the extraction left unresolved, then dedupes. Withdrawals
// and bills need a source, deposits a destination, transfers both.
func reconcileMissingInfo(p *domain.Proposal) []string {
	missing := p.MissingInfo

	needsSource := p.Type != domain.TypeDeposit
	needsDestination := p.Type == domain.TypeDeposit || p.Type == domain.TypeTransfer

	if needsSource && !p.Source.Resolved() {
		missing = append(missing, "source_id")
	}
	if needsDestination && !p.Destination.Resolved() {
		missing = append(missing, "destination_id")
	}

	seen := make(map[string]bool, len(missing))
	var out []string
	for _, field := range missing {
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, field)
	}
	return out
}

// unionTags merges explicit user tags with model tags. User tags come
// first and always survive; duplicates are dropped.
func unionTags(userTags, modelTags []string) []string {
	seen := make(map[string]bool, len(userTags)+len(modelTags))
	var tags []string
	for _, tag := range userTags {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	for _, tag := range modelTags {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func stringField(fields map[string]interface{}, key, fallback string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return fallback
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

// amountField reads the amount as a string whatever scalar the model sent.
func amountField(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return "0"
	}
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return s
		}
		return "0"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return "0"
	}
}

func stringListField(fields map[string]interface{}, key string) []string {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case []string:
		return val
	case []interface{}:
		var items []string
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				items = append(items, strings.TrimSpace(s))
			}
		}
		return items
	default:
		return nil
	}
}

// refField reads a model-proposed reference. Numbers and numeric strings
// resolve; "unknown", zero, null and anything else stay unresolved.
func refField(fields map[string]interface{}, key string) domain.Ref {
	v, ok := fields[key]
	if !ok || v == nil {
		return domain.UnknownRef()
	}
	switch val := v.(type) {
	case float64:
		return domain.ModelRef(int64(val))
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return domain.UnknownRef()
		}
		return domain.ModelRef(id)
	default:
		return domain.UnknownRef()
	}
}
