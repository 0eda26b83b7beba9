package domain

import (
	"time"

	"github.com/lib/pq"
)

// OperatorCache — кешированный снимок иерархии и профилей безопасности
// оператора. Обновляется не чаще одного раза за окно охлаждения, чтобы
// ограничить обращения к контакт-центру.
type OperatorCache struct {
	OperatorID         string          `json:"operatorId" db:"operator_id"`
	HierarchyGroupID   string          `json:"hierarchyGroupId" db:"hierarchy_group_id"`
	HierarchySnapshot  *HierarchyGroup `json:"hierarchySnapshot" db:"hierarchy_snapshot"`
	SecurityProfileIDs pq.StringArray  `json:"securityProfileIds" db:"security_profile_ids"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	ExpiresAt          time.Time       `json:"-" db:"expires_at"`
}

// HasSecurityProfile проверяет членство оператора в профиле безопасности.
func (c *OperatorCache) HasSecurityProfile(profileID string) bool {
	for _, id := range c.SecurityProfileIDs {
		if id == profileID {
			return true
		}
	}
	return false
}
