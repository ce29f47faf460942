package azdo

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// workItemBatchLimit is the maximum number of ids accepted by the
// workitemsbatch endpoint per call.
const workItemBatchLimit = 200

// DefaultWorkItemFields are the fields hydrated for bug reporting.
var DefaultWorkItemFields = []string{
	"System.Id",
	"System.WorkItemType",
	"System.Title",
	"System.AssignedTo",
	"System.State",
	"System.Tags",
	"Microsoft.VSTS.Common.Severity",
	"Microsoft.VSTS.Common.ClosedDate",
	"System.CreatedDate",
}

// WorkItemQuery describes a WIQL bug query scoped to an area path, an
// iteration path and a created-date window.
type WorkItemQuery struct {
	Project       string
	WorkItemType  string
	AreaPath      string
	IterationPath string
	CreatedFrom   time.Time
	CreatedTo     time.Time
}

// WIQL renders the query in work item query language. Only ids come back
// from the wiql endpoint; fields are hydrated separately in batches.
func (q *WorkItemQuery) WIQL() string {
	itemType := q.WorkItemType
	if itemType == "" {
		itemType = "Bug"
	}
	clauses := []string{
		fmt.Sprintf("[System.TeamProject] = '%s'", q.Project),
		fmt.Sprintf("[System.WorkItemType] = '%s'", itemType),
	}
	if q.AreaPath != "" {
		clauses = append(clauses, fmt.Sprintf("[System.AreaPath] = '%s'", q.AreaPath))
	}
	if q.IterationPath != "" {
		clauses = append(clauses, fmt.Sprintf("[System.IterationPath] = '%s'", q.IterationPath))
	}
	if !q.CreatedFrom.IsZero() {
		clauses = append(clauses, fmt.Sprintf("[System.CreatedDate] >= '%s'", q.CreatedFrom.Format("2006-01-02T15:04:05")))
	}
	if !q.CreatedTo.IsZero() {
		clauses = append(clauses, fmt.Sprintf("[System.CreatedDate] <= '%s'", q.CreatedTo.Format("2006-01-02T15:04:05")))
	}
	return "SELECT [System.Id] FROM workitems WHERE " + strings.Join(clauses, " AND ")
}

// QueryWorkItemIDs runs a WIQL query and returns the matching ids.
func (c *Client) QueryWorkItemIDs(wiql string) ([]int, error) {
	payload := map[string]string{"query": wiql}
	var resp struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	params := valuesFrom(map[string]string{"api-version": c.config.workItemVersion()})
	if err := c.postJSON(c.config.projectURL("/_apis/wit/wiql"), params, payload, &resp); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(resp.WorkItems))
	for _, wi := range resp.WorkItems {
		ids = append(ids, wi.ID)
	}
	log.Infof("WIQL query matched %d work item(s)", len(ids))
	return ids, nil
}

// workItemWire is the hydrated work item shape; fields are keyed by their
// reference names.
type workItemWire struct {
	ID     int                    `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

func (w *workItemWire) toWorkItem() WorkItem {
	wi := WorkItem{
		ID:          w.ID,
		Type:        fieldString(w.Fields, "System.WorkItemType"),
		Title:       fieldString(w.Fields, "System.Title"),
		State:       fieldString(w.Fields, "System.State"),
		Severity:    fieldString(w.Fields, "Microsoft.VSTS.Common.Severity"),
		Tags:        fieldString(w.Fields, "System.Tags"),
		CreatedDate: fieldTime(w.Fields, "System.CreatedDate"),
		ClosedDate:  fieldTime(w.Fields, "Microsoft.VSTS.Common.ClosedDate"),
	}
	// AssignedTo arrives as an identity object on recent revisions and as a
	// display string on old ones.
	switch v := w.Fields["System.AssignedTo"].(type) {
	case string:
		wi.AssignedTo = v
	case map[string]interface{}:
		if name, ok := v["displayName"].(string); ok {
			wi.AssignedTo = name
		}
	}
	return wi
}

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldTime(fields map[string]interface{}, key string) time.Time {
	s := fieldString(fields, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetWorkItems hydrates work items in batches if needed, keeping request
// bodies within the endpoint's id limit. A nil fields slice hydrates the
// default bug-reporting fields.
func (c *Client) GetWorkItems(ids []int, fields []string) ([]WorkItem, error) {
	if fields == nil {
		fields = DefaultWorkItemFields
	}
	out := make([]WorkItem, 0, len(ids))

	for start := 0; start < len(ids); start += workItemBatchLimit {
		end := start + workItemBatchLimit
		if end > len(ids) {
			end = len(ids)
		}
		payload := map[string]interface{}{
			"ids":    ids[start:end],
			"fields": fields,
		}
		var resp struct {
			Value []workItemWire `json:"value"`
		}
		params := valuesFrom(map[string]string{"api-version": c.config.workItemVersion()})
		if err := c.postJSON(c.config.orgURL("/_apis/wit/workitemsbatch"), params, payload, &resp); err != nil {
			return nil, err
		}
		for i := range resp.Value {
			out = append(out, resp.Value[i].toWorkItem())
		}
	}
	return out, nil
}
