package services

import "research-incentive-api/models"

// Transition action names. Each HTTP workflow verb maps to exactly one
// action; the tables below define which statuses permit it.
const (
	ActionSubmit         = "submit"
	ActionMentorApprove  = "mentor_approve"
	ActionMentorReject   = "mentor_reject"
	ActionStartReview    = "start_review"
	ActionRecommend      = "recommend"
	ActionRequestChanges = "request_changes"
	ActionResubmit       = "resubmit"
	ActionResumeReview   = "resume_review"
	ActionDRDReject      = "drd_reject"
	ActionHeadApprove    = "head_approve"
	ActionHeadReject     = "head_reject"
	ActionFileGovt       = "submit_to_govt"
	ActionGovtFiled      = "govt_filed"
	ActionPublish        = "publish"
	ActionComplete       = "complete"
)

// transitionDef describes one legal edge of the state machine.
type transitionDef struct {
	From string
	To   string

	// Capability required for the action. Empty means the action is gated
	// by identity (filer or mentor) instead of a capability key.
	Capability models.Capability

	// ByFiler restricts the action to the submission's filer, ByMentor to
	// the submission's assigned mentor.
	ByFiler  bool
	ByMentor bool

	// NeedsAssignment requires the actor to hold a reviewer assignment
	// covering the submission's school for this submission kind.
	NeedsAssignment bool

	// TriggersIncentive marks the approval transition that runs the
	// incentive calculator atomically with the status change.
	TriggersIncentive bool

	// MentorRouting marks the submit action whose target depends on the
	// filer's role and mentor: pending_mentor_approval when mentor
	// approval is required, To otherwise.
	MentorRouting bool
}

var iprTransitions = map[string]transitionDef{
	ActionSubmit: {
		From:          models.StatusDraft,
		To:            models.StatusSubmitted,
		Capability:    models.CapIPRSubmit,
		ByFiler:       true,
		MentorRouting: true,
	},
	ActionMentorApprove: {
		From:     models.StatusPendingMentorApproval,
		To:       models.StatusSubmitted,
		ByMentor: true,
	},
	ActionMentorReject: {
		From:     models.StatusPendingMentorApproval,
		To:       models.StatusDraft,
		ByMentor: true,
	},
	ActionStartReview: {
		From:            models.StatusSubmitted,
		To:              models.StatusUnderDRDReview,
		Capability:      models.CapIPRReview,
		NeedsAssignment: true,
	},
	ActionRecommend: {
		From:            models.StatusUnderDRDReview,
		To:              models.StatusRecommendedToHead,
		Capability:      models.CapIPRReview,
		NeedsAssignment: true,
	},
	ActionRequestChanges: {
		From:            models.StatusUnderDRDReview,
		To:              models.StatusChangesRequired,
		Capability:      models.CapIPRReview,
		NeedsAssignment: true,
	},
	ActionResubmit: {
		From:       models.StatusChangesRequired,
		To:         models.StatusResubmitted,
		Capability: models.CapIPRSubmit,
		ByFiler:    true,
	},
	ActionResumeReview: {
		From:            models.StatusResubmitted,
		To:              models.StatusUnderDRDReview,
		Capability:      models.CapIPRReview,
		NeedsAssignment: true,
	},
	ActionDRDReject: {
		From:            models.StatusUnderDRDReview,
		To:              models.StatusDRDRejected,
		Capability:      models.CapIPRReview,
		NeedsAssignment: true,
	},
	ActionHeadApprove: {
		From:              models.StatusRecommendedToHead,
		To:                models.StatusDRDHeadApproved,
		Capability:        models.CapIPRApprove,
		TriggersIncentive: true,
	},
	ActionHeadReject: {
		From:       models.StatusRecommendedToHead,
		To:         models.StatusRejected,
		Capability: models.CapIPRApprove,
	},
	ActionFileGovt: {
		From:       models.StatusDRDHeadApproved,
		To:         models.StatusSubmittedToGovt,
		Capability: models.CapIPRGovtFile,
	},
	ActionGovtFiled: {
		From:       models.StatusSubmittedToGovt,
		To:         models.StatusGovtApplicationFiled,
		Capability: models.CapIPRGovtFile,
	},
	ActionPublish: {
		From:       models.StatusGovtApplicationFiled,
		To:         models.StatusPublished,
		Capability: models.CapIPRFinalize,
	},
	ActionComplete: {
		From:       models.StatusPublished,
		To:         models.StatusCompleted,
		Capability: models.CapIPRFinalize,
	},
}

// The research variant is isomorphic: same review spine, no government
// filing chain, approval stage named "approved".
var researchTransitions = map[string]transitionDef{
	ActionSubmit: {
		From:          models.StatusDraft,
		To:            models.StatusSubmitted,
		Capability:    models.CapResearchSubmit,
		ByFiler:       true,
		MentorRouting: true,
	},
	ActionMentorApprove: {
		From:     models.StatusPendingMentorApproval,
		To:       models.StatusSubmitted,
		ByMentor: true,
	},
	ActionMentorReject: {
		From:     models.StatusPendingMentorApproval,
		To:       models.StatusDraft,
		ByMentor: true,
	},
	ActionStartReview: {
		From:            models.StatusSubmitted,
		To:              models.StatusUnderDRDReview,
		Capability:      models.CapResearchReview,
		NeedsAssignment: true,
	},
	ActionRecommend: {
		From:            models.StatusUnderDRDReview,
		To:              models.StatusRecommendedToHead,
		Capability:      models.CapResearchReview,
		NeedsAssignment: true,
	},
	ActionRequestChanges: {
		From:            models.StatusUnderDRDReview,
		To:              models.StatusChangesRequired,
		Capability:      models.CapResearchReview,
		NeedsAssignment: true,
	},
	ActionResubmit: {
		From:       models.StatusChangesRequired,
		To:         models.StatusResubmitted,
		Capability: models.CapResearchSubmit,
		ByFiler:    true,
	},
	ActionResumeReview: {
		From:            models.StatusResubmitted,
		To:              models.StatusUnderDRDReview,
		Capability:      models.CapResearchReview,
		NeedsAssignment: true,
	},
	ActionDRDReject: {
		From:            models.StatusUnderDRDReview,
		To:              models.StatusDRDRejected,
		Capability:      models.CapResearchReview,
		NeedsAssignment: true,
	},
	ActionHeadApprove: {
		From:              models.StatusRecommendedToHead,
		To:                models.StatusApproved,
		Capability:        models.CapResearchApprove,
		TriggersIncentive: true,
	},
	ActionHeadReject: {
		From:       models.StatusRecommendedToHead,
		To:         models.StatusRejected,
		Capability: models.CapResearchApprove,
	},
	ActionComplete: {
		From:       models.StatusApproved,
		To:         models.StatusCompleted,
		Capability: models.CapResearchFinalize,
	},
}

func transitionsFor(submissionType string) map[string]transitionDef {
	if submissionType == models.SubmissionTypeResearch {
		return researchTransitions
	}
	return iprTransitions
}

// approvedStatusFor returns the status that carries an incentive result
// for the given submission kind.
func approvedStatusFor(submissionType string) string {
	if submissionType == models.SubmissionTypeResearch {
		return models.StatusApproved
	}
	return models.StatusDRDHeadApproved
}
