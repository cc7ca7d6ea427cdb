package travel

import (
	"fmt"
	"strings"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

func submittedText(req *entity.TravelRequest) string {
	if req.SkippedManagerApproval() {
		return fmt.Sprintf("Travel request submitted by %s (%s) for %s to %s. No manager approval required; forwarded to the travel coordinator.",
			req.OriginatorName, req.OriginatorEmail, req.Trip.Origin, req.Trip.Destination)
	}
	return fmt.Sprintf("Travel request submitted by %s (%s) for %s to %s. Approval chain: %s.",
		req.OriginatorName, req.OriginatorEmail, req.Trip.Origin, req.Trip.Destination, req.ApprovalChain.Summary())
}

func transitionText(t *entity.Transition) string {
	var b strings.Builder
	switch t.Kind {
	case entity.TransitionChainAdvanced:
		fmt.Fprintf(&b, "Approved by %s (%s, impact level %s).", t.ActorName, t.ActorEmail, t.ActorImpactLevel)
		if t.Next != nil {
			fmt.Fprintf(&b, " Awaiting approval from %s.", t.Next.Label())
		}
	case entity.TransitionManagersCleared:
		fmt.Fprintf(&b, "Approved by %s (%s, impact level %s). All manager approvals complete; awaiting travel coordinator review.",
			t.ActorName, t.ActorEmail, t.ActorImpactLevel)
	case entity.TransitionManagerRejected:
		fmt.Fprintf(&b, "Rejected by %s (%s, impact level %s).", t.ActorName, t.ActorEmail, t.ActorImpactLevel)
	case entity.TransitionFinalApproved:
		fmt.Fprintf(&b, "Final approval by travel coordinator %s. Request released for booking.", actorLabel(t))
	case entity.TransitionPOCRejected:
		fmt.Fprintf(&b, "Rejected by travel coordinator %s.", actorLabel(t))
	default:
		fmt.Fprintf(&b, "Status changed from %s to %s by %s.", t.From, t.To, t.ActorEmail)
	}
	if t.Comment != "" {
		b.WriteString(" Comment: ")
		b.WriteString(t.Comment)
	}
	return b.String()
}

func actorLabel(t *entity.Transition) string {
	if t.ActorName == "" {
		return t.ActorEmail
	}
	return fmt.Sprintf("%s (%s)", t.ActorName, t.ActorEmail)
}

// transitionMessages returns the notifications for a committed transition.
// The originator always gets one; the next approver gets one only while the
// chain advances.
func transitionMessages(req *entity.TravelRequest, t *entity.Transition) []outbound.Message {
	ref := req.ID
	trip := fmt.Sprintf("%s to %s", req.Trip.Origin, req.Trip.Destination)
	var out []outbound.Message

	switch t.Kind {
	case entity.TransitionChainAdvanced:
		if t.Next != nil {
			out = append(out, outbound.Message{
				Recipient:  t.Next.Email,
				Kind:       entity.NotifyApprovalRequired,
				Title:      "Travel request awaiting your approval",
				Body:       fmt.Sprintf("%s requested travel from %s and is waiting for your approval.", req.OriginatorName, trip),
				RequestRef: ref,
			})
		}
		next := ""
		if t.Next != nil {
			next = " Next approver: " + t.Next.Label() + "."
		}
		out = append(out, outbound.Message{
			Recipient:  req.OriginatorEmail,
			Kind:       entity.NotifyApprovalProgress,
			Title:      "Your travel request was approved by " + t.ActorName,
			Body:       fmt.Sprintf("Your request for travel from %s was approved by %s.%s", trip, t.ActorName, next),
			RequestRef: ref,
		})
	case entity.TransitionManagersCleared:
		out = append(out, outbound.Message{
			Recipient:  req.OriginatorEmail,
			Kind:       entity.NotifyManagersApproved,
			Title:      "All managers approved your travel request",
			Body:       fmt.Sprintf("Your request for travel from %s cleared every manager approval and is with the travel coordinator.", trip),
			RequestRef: ref,
		})
	case entity.TransitionManagerRejected:
		out = append(out, outbound.Message{
			Recipient:  req.OriginatorEmail,
			Kind:       entity.NotifyRequestRejected,
			Title:      "Your travel request was rejected",
			Body:       withComment(fmt.Sprintf("Your request for travel from %s was rejected by %s.", trip, t.ActorName), t.Comment),
			RequestRef: ref,
		})
	case entity.TransitionFinalApproved:
		out = append(out, outbound.Message{
			Recipient:  req.OriginatorEmail,
			Kind:       entity.NotifyRequestApproved,
			Title:      "Your travel request is approved",
			Body:       fmt.Sprintf("Your request for travel from %s received final approval and is released for booking.", trip),
			RequestRef: ref,
		})
	case entity.TransitionPOCRejected:
		out = append(out, outbound.Message{
			Recipient:  req.OriginatorEmail,
			Kind:       entity.NotifyPOCRejected,
			Title:      "Your travel request was rejected by the travel coordinator",
			Body:       withComment(fmt.Sprintf("Your request for travel from %s was rejected by the travel coordinator.", trip), t.Comment),
			RequestRef: ref,
		})
	}
	return out
}

func withComment(body, comment string) string {
	if comment == "" {
		return body
	}
	return body + " Comment: " + comment
}
