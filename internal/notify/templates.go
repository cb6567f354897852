package notify

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"roadwatch/internal/domain"
	"roadwatch/internal/templatefmt"
)

const submissionBody = `Dear Resident,

Thank you for reporting a pothole in Brampton. Your report has been received and logged in our system.

Report Details:
- Report ID: {{ .ID }}
- Location: {{ .RoadName | orDefault "Not specified" }}
- Ward: {{ .Ward | orDefault "Not specified" }}
- Priority: {{ upper .Priority }}
- Detected: {{ date .DetectedAt }}

Your report is important to us. Our maintenance team will review it and schedule repairs based on the severity and priority.

You can track your report status at any time using your Report ID.

Thank you for helping keep Brampton's roads safe!

Best regards,
Brampton Road Maintenance Team
`

const statusUpdateBody = `Dear Resident,

Your pothole report has been updated.

Report ID: {{ .ID }}
Location: {{ .RoadName | orDefault "Not specified" }}
Status Changed: {{ upper .OldStatus }} → {{ upper .NewStatus }}

{{ .StatusMessage }}

Thank you for your patience.

Best regards,
Brampton Road Maintenance Team
`

const escalationBody = `URGENT: Pothole Repair Overdue

Report ID: {{ .ID }}
Location: {{ .RoadName | orDefault "Not specified" }}
Ward: {{ .Ward | orDefault "Not specified" }}
Priority: {{ upper .Priority }}
Status: {{ upper .Status }}

Days Overdue: {{ .DaysOverdue }}
Deadline: {{ .DeadlineDays }} days
Detected: {{ date .DetectedAt }}

This repair is past its deadline and requires immediate attention.
Please review and take appropriate action.

Escalation Level: {{ .EscalationLevel }}
Notified Roles: {{ join .Roles ", " }}
`

var (
	submissionTemplate   = template.Must(templatefmt.ParseMessageTemplate("submission_confirmation", submissionBody))
	statusUpdateTemplate = template.Must(templatefmt.ParseMessageTemplate("status_update", statusUpdateBody))
	escalationTemplate   = template.Must(templatefmt.ParseMessageTemplate("escalation", escalationBody))
)

// messageData is the template view of one pothole event.
type messageData struct {
	ID              string
	RoadName        string
	Ward            string
	Priority        domain.Priority
	Status          domain.Status
	DetectedAt      time.Time
	OldStatus       domain.Status
	NewStatus       domain.Status
	StatusMessage   string
	DaysOverdue     int
	DeadlineDays    int
	EscalationLevel int
	Roles           []string
}

func recordData(record domain.IssueRecord) messageData {
	return messageData{
		ID:         record.ID,
		RoadName:   record.RoadName,
		Ward:       record.Ward,
		Priority:   record.Priority.OrDefault(),
		Status:     record.Status,
		DetectedAt: record.DetectedAt,
	}
}

// StatusMessage returns resident-facing explanation of a workflow status.
func StatusMessage(status domain.Status) string {
	switch status {
	case domain.StatusScheduled:
		return "Your report has been reviewed and scheduled for repair. Our crew will address it soon."
	case domain.StatusInProgress:
		return "Repair work is currently in progress. Thank you for your patience."
	case domain.StatusCompleted:
		return "The repair has been completed. Thank you for reporting this issue!"
	default:
		return "Your report is being reviewed by our maintenance team."
	}
}

// SubmissionSubject renders confirmation e-mail subject.
func SubmissionSubject(id string) string {
	return "Pothole Report Confirmed - ID: " + id
}

// StatusUpdateSubject renders status update e-mail subject.
func StatusUpdateSubject(id string) string {
	return "Pothole Report Update - ID: " + id
}

// EscalationSubject renders escalation e-mail subject.
func EscalationSubject(id string) string {
	return "ESCALATION: Overdue Pothole Repair - ID: " + id
}

func renderBody(tmpl *template.Template, data messageData) (string, error) {
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render %s message: %w", tmpl.Name(), err)
	}
	return out.String(), nil
}
