package approval

// AssetStatus 素材级派生状态
type AssetStatus struct {
	CurrentStage  int    `json:"currentStage"`
	OverallStatus string `json:"overallStatus"`
}

// DeriveAssetStatus 从阶段进度列表派生 current_stage 与 overall_status。
// 全系统唯一的派生入口，纯函数，每次读取重新计算，不做缓存。
//
// current_stage 规则：存在 in_review 阶段取其序号；否则取已 approved 阶段的最大序号；否则为 1。
// overall_status 优先级（先命中先生效）：
//  1. 任一阶段 changes_requested -> changes_requested
//  2. 列表非空且全部 approved -> approved
//  3. 任一阶段 in_review -> in_progress
//  4. 其余 -> not_started
func DeriveAssetStatus(progress []*StageProgress) AssetStatus {
	currentStage := 1
	maxApproved := 0
	hasInReview := false
	hasChangesRequested := false
	allApproved := len(progress) > 0

	for _, p := range progress {
		switch p.Status {
		case StageStatusInReview:
			if !hasInReview {
				currentStage = p.StageOrder
				hasInReview = true
			}
		case StageStatusApproved:
			if p.StageOrder > maxApproved {
				maxApproved = p.StageOrder
			}
		case StageStatusChangesRequested:
			hasChangesRequested = true
		}
		if p.Status != StageStatusApproved {
			allApproved = false
		}
	}

	if !hasInReview && maxApproved > 0 {
		currentStage = maxApproved
	}

	overall := OverallStatusNotStarted
	switch {
	case hasChangesRequested:
		overall = OverallStatusChangesRequested
	case allApproved:
		overall = OverallStatusApproved
	case hasInReview:
		overall = OverallStatusInProgress
	}

	return AssetStatus{CurrentStage: currentStage, OverallStatus: overall}
}
