package approval

import "testing"

func progressRow(order int, status string) *StageProgress {
	return &StageProgress{StageOrder: order, Status: status}
}

func TestDeriveAssetStatus(t *testing.T) {
	cases := []struct {
		name          string
		progress      []*StageProgress
		wantStage     int
		wantOverall   string
	}{
		{
			name:        "空进度列表",
			progress:    nil,
			wantStage:   1,
			wantOverall: OverallStatusNotStarted,
		},
		{
			name: "全部未开始",
			progress: []*StageProgress{
				progressRow(1, StageStatusNotStarted),
				progressRow(2, StageStatusNotStarted),
			},
			wantStage:   1,
			wantOverall: OverallStatusNotStarted,
		},
		{
			name: "存在评审中阶段",
			progress: []*StageProgress{
				progressRow(1, StageStatusApproved),
				progressRow(2, StageStatusInReview),
				progressRow(3, StageStatusNotStarted),
			},
			wantStage:   2,
			wantOverall: OverallStatusInProgress,
		},
		{
			name: "全部已通过",
			progress: []*StageProgress{
				progressRow(1, StageStatusApproved),
				progressRow(2, StageStatusApproved),
				progressRow(3, StageStatusApproved),
			},
			wantStage:   3,
			wantOverall: OverallStatusApproved,
		},
		{
			name: "打回优先于其他状态",
			progress: []*StageProgress{
				progressRow(1, StageStatusApproved),
				progressRow(2, StageStatusChangesRequested),
			},
			wantStage:   1,
			wantOverall: OverallStatusChangesRequested,
		},
		{
			name: "打回与评审中并存时打回优先",
			progress: []*StageProgress{
				progressRow(1, StageStatusChangesRequested),
				progressRow(2, StageStatusInReview),
			},
			wantStage:   2,
			wantOverall: OverallStatusChangesRequested,
		},
		{
			name: "无评审中时取已通过的最大序号",
			progress: []*StageProgress{
				progressRow(1, StageStatusApproved),
				progressRow(2, StageStatusApproved),
				progressRow(3, StageStatusNotStarted),
			},
			wantStage:   2,
			wantOverall: OverallStatusNotStarted,
		},
		{
			name: "等待终审的最后阶段不算已通过",
			progress: []*StageProgress{
				progressRow(1, StageStatusApproved),
				progressRow(2, StageStatusApproved),
				progressRow(3, StageStatusPendingFinal),
			},
			wantStage:   2,
			wantOverall: OverallStatusNotStarted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveAssetStatus(tc.progress)
			if got.CurrentStage != tc.wantStage {
				t.Fatalf("current_stage = %d, 期望 %d", got.CurrentStage, tc.wantStage)
			}
			if got.OverallStatus != tc.wantOverall {
				t.Fatalf("overall_status = %s, 期望 %s", got.OverallStatus, tc.wantOverall)
			}
		})
	}
}

func TestDeriveAssetStatusTakesFirstInReview(t *testing.T) {
	got := DeriveAssetStatus([]*StageProgress{
		progressRow(1, StageStatusInReview),
		progressRow(3, StageStatusInReview),
	})
	if got.CurrentStage != 1 {
		t.Fatalf("多个评审中阶段应取首个: %+v", got)
	}
	if got.OverallStatus != OverallStatusInProgress {
		t.Fatalf("overall_status 不正确: %+v", got)
	}
}
