package models

// Capability is a closed capability key granted to roles through
// role_permissions. Checks are exact matches against this enum; there is
// no substring or case-folding lookup anywhere.
type Capability string

const (
	CapIPRSubmit        Capability = "ipr_submit"
	CapIPRReview        Capability = "ipr_review"
	CapIPRApprove       Capability = "ipr_approve"
	CapIPRGovtFile      Capability = "ipr_govt_file"
	CapIPRFinalize      Capability = "ipr_finalize"
	CapResearchSubmit   Capability = "research_submit"
	CapResearchReview   Capability = "research_review"
	CapResearchApprove  Capability = "research_approve"
	CapResearchFinalize Capability = "research_finalize"
	CapPolicyManage     Capability = "policy_manage"
	CapSubmissionDelete Capability = "submission_delete"
	CapAssignmentManage Capability = "assignment_manage"
	CapAuditView        Capability = "audit_view"
)

var allCapabilities = map[Capability]bool{
	CapIPRSubmit:        true,
	CapIPRReview:        true,
	CapIPRApprove:       true,
	CapIPRGovtFile:      true,
	CapIPRFinalize:      true,
	CapResearchSubmit:   true,
	CapResearchReview:   true,
	CapResearchApprove:  true,
	CapResearchFinalize: true,
	CapPolicyManage:     true,
	CapSubmissionDelete: true,
	CapAssignmentManage: true,
	CapAuditView:        true,
}

// IsKnownCapability reports whether the key belongs to the closed enum.
func IsKnownCapability(key string) bool {
	return allCapabilities[Capability(key)]
}
