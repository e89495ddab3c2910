package lti

import "strings"

// Role vocabulary URIs (LIS v2). Platforms may send full URIs or the bare
// short names; both are accepted, matching common LMS behavior.
const (
	roleMembershipInstructor = "http://purl.imsglobal.org/vocab/lis/v2/membership#Instructor"
	roleMembershipLearner    = "http://purl.imsglobal.org/vocab/lis/v2/membership#Learner"
	roleInstitutionTeacher   = "http://purl.imsglobal.org/vocab/lis/v2/institution/person#Instructor"
	roleInstitutionStudent   = "http://purl.imsglobal.org/vocab/lis/v2/institution/person#Student"
	roleInstitutionLearner   = "http://purl.imsglobal.org/vocab/lis/v2/institution/person#Learner"
	roleTeachingAssistant    = "http://purl.imsglobal.org/vocab/lis/v2/membership/Instructor#TeachingAssistant"
)

// IsTeacher reports whether the role list carries instructor capability.
func IsTeacher(roles []string) bool {
	return hasRole(roles, roleMembershipInstructor, roleInstitutionTeacher, "Instructor")
}

// IsTeachingAssistant reports whether the role list carries TA capability.
func IsTeachingAssistant(roles []string) bool {
	return hasRole(roles, roleTeachingAssistant, "TeachingAssistant")
}

// IsStudent reports whether the role list carries learner capability.
func IsStudent(roles []string) bool {
	return hasRole(roles, roleMembershipLearner, roleInstitutionStudent, roleInstitutionLearner, "Learner", "Student")
}

func hasRole(roles []string, wanted ...string) bool {
	for _, r := range roles {
		for _, w := range wanted {
			if r == w {
				return true
			}
			// Sub-roles come as "<base>#Sub"; treat them as the base role
			// unless the base itself is a sub-role URI.
			if strings.Contains(w, "#") && strings.HasPrefix(r, w+"/") {
				return true
			}
		}
	}
	return false
}
