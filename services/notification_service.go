package services

import (
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"research-incentive-api/config"
	"research-incentive-api/models"

	"gorm.io/gorm"
)

// NotificationService delivers transition events as in-app notification
// rows plus an email to each recipient that has an address on file.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

type notificationRecipient struct {
	userID int
	email  string
	name   string
}

// transitionMessage maps a workflow action to the notification shown to
// the filer. Severity follows the filer-facing meaning of the event,
// not whether the request succeeded.
func transitionMessage(submission *models.Submission, action string) (title, body, severity string) {
	number := submission.SubmissionNumber
	switch action {
	case ActionSubmit:
		return "Submission received",
			fmt.Sprintf("Your submission %s has been received and queued for review.", number),
			"success"
	case ActionMentorApprove:
		return "Mentor approval granted",
			fmt.Sprintf("Your mentor has approved submission %s; it is now in the review queue.", number),
			"success"
	case ActionMentorReject:
		return "Mentor returned your submission",
			fmt.Sprintf("Your mentor has returned submission %s to draft. Please revise and submit again.", number),
			"warning"
	case ActionStartReview, ActionResumeReview:
		return "Review started",
			fmt.Sprintf("Submission %s is now under review.", number),
			"info"
	case ActionRecommend:
		return "Recommended for approval",
			fmt.Sprintf("Submission %s has been recommended to the department head.", number),
			"success"
	case ActionRequestChanges:
		return "Changes requested",
			fmt.Sprintf("The reviewer has requested changes to submission %s.", number),
			"warning"
	case ActionResubmit:
		return "Resubmission received",
			fmt.Sprintf("Your revised submission %s has been received.", number),
			"success"
	case ActionDRDReject:
		return "Submission rejected in review",
			fmt.Sprintf("Submission %s was rejected during review.", number),
			"error"
	case ActionHeadApprove:
		return "Submission approved",
			fmt.Sprintf("Submission %s has been approved by the department head.", number),
			"success"
	case ActionHeadReject:
		return "Submission rejected",
			fmt.Sprintf("Submission %s was not approved by the department head.", number),
			"error"
	case ActionFileGovt:
		return "Government filing prepared",
			fmt.Sprintf("Submission %s has been forwarded for government filing.", number),
			"info"
	case ActionGovtFiled:
		return "Government application filed",
			fmt.Sprintf("The government application for submission %s has been filed.", number),
			"info"
	case ActionPublish:
		return "Submission published",
			fmt.Sprintf("Submission %s has been published.", number),
			"success"
	case ActionComplete:
		return "Submission completed",
			fmt.Sprintf("Submission %s has completed the workflow.", number),
			"success"
	default:
		return "Submission updated",
			fmt.Sprintf("The status of submission %s has changed.", number),
			"info"
	}
}

// NotifyTransition records in-app notifications and sends emails for one
// committed transition. It runs outside the transition transaction, so a
// failure here is logged and never surfaces to the caller.
func (s *NotificationService) NotifyTransition(submission *models.Submission, action, oldStatus string, actorID int) {
	title, body, severity := transitionMessage(submission, action)
	if filer := s.lookupUser(submission.UserID); filer != nil {
		s.deliver(*filer, submission, title, body, severity)
	}

	// When the submit routed to mentor approval the mentor gets a queue
	// message of their own rather than a copy of the filer's.
	if action == ActionSubmit && submission.Status == models.StatusPendingMentorApproval && submission.MentorID != nil {
		if mentor := s.lookupUser(*submission.MentorID); mentor != nil {
			mentorBody := fmt.Sprintf("Submission %s is awaiting your approval.", submission.SubmissionNumber)
			s.deliver(*mentor, submission, "Submission awaiting your approval", mentorBody, "info")
		}
	}
}

func (s *NotificationService) deliver(recipient notificationRecipient, submission *models.Submission, title, body, severity string) {
	s.createInApp(recipient.userID, submission.SubmissionID, title, body, severity)
	if recipient.email == "" {
		return
	}
	subject := fmt.Sprintf("[%s] %s", submission.SubmissionNumber, title)
	html := buildEmailHTML(subject, recipient.name, body)
	if err := config.SendMail([]string{recipient.email}, subject, html); err != nil {
		log.Printf("notification email send failed (submission=%s to=%s): %v",
			submission.SubmissionNumber, recipient.email, err)
	}
}

func (s *NotificationService) lookupUser(userID int) *notificationRecipient {
	var user models.User
	if err := s.db.Select("user_id, email, user_fname, user_lname").
		Where("user_id = ? AND delete_at IS NULL", userID).
		First(&user).Error; err != nil {
		log.Printf("notification recipient lookup failed (user=%d): %v", userID, err)
		return nil
	}
	name := strings.TrimSpace(user.UserFname + " " + user.UserLname)
	return &notificationRecipient{userID: user.UserID, email: user.Email, name: name}
}

func (s *NotificationService) createInApp(userID, submissionID int, title, message, severity string) {
	row := models.Notification{
		UserID:              userID,
		Title:               title,
		Message:             message,
		Type:                severity,
		RelatedSubmissionID: &submissionID,
		IsRead:              false,
		CreateAt:            time.Now(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("failed to create notification (user=%d submission=%d): %v", userID, submissionID, err)
	}
}

func buildEmailHTML(subject, recipientName, message string) string {
	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "Researcher"
	}

	escapedSubject := template.HTMLEscapeString(subject)
	escapedGreeting := template.HTMLEscapeString(fmt.Sprintf("Dear %s,", name))
	escapedMessage := template.HTMLEscapeString(strings.TrimSpace(message))
	escapedMessage = strings.ReplaceAll(strings.ReplaceAll(escapedMessage, "\r\n", "\n"), "\r", "\n")
	escapedMessage = strings.ReplaceAll(escapedMessage, "\n", "<br />")

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.7;color:#111827;">%s</p>
    <p style="margin:0 0 0 0;font-size:16px;line-height:1.7;color:#111827;word-break:break-word;">%s</p>
  </div>
</div>
</body>
</html>`, escapedSubject, escapedGreeting, escapedMessage)
}
