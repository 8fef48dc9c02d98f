package market

// Gap 表示缺失的连续 K 线区间。
type Gap struct {
	From  int64 `json:"from"`
	To    int64 `json:"to"`
	Count int64 `json:"count"`
}

// IntegrityReport 描述序列在自身时间范围内的覆盖情况。
type IntegrityReport struct {
	Start      int64 `json:"start"`
	End        int64 `json:"end"`
	Expected   int64 `json:"expected"`
	Present    int64 `json:"present"`
	Duplicates int   `json:"duplicates"`
	Irregular  int   `json:"irregular"`
	Gaps       []Gap `json:"gaps,omitempty"`
}

func (r IntegrityReport) Complete() bool {
	return len(r.Gaps) == 0 && r.Duplicates == 0 && r.Irregular == 0
}

// CheckIntegrity 按固定步长（毫秒）检查相邻 OpenTime。
// 间隔不是 stepMillis 整数倍的记为 Irregular，不计入缺口。
func CheckIntegrity(s Series, stepMillis int64) IntegrityReport {
	var report IntegrityReport
	if s.Len() == 0 || stepMillis <= 0 {
		return report
	}
	report.Start = s.At(0).OpenTime
	report.End = s.At(s.Len() - 1).OpenTime
	report.Expected = (report.End-report.Start)/stepMillis + 1

	prev := report.Start
	present := int64(1)
	for i := 1; i < s.Len(); i++ {
		cur := s.At(i).OpenTime
		delta := cur - prev
		switch {
		case delta == 0:
			report.Duplicates++
			continue
		case delta%stepMillis != 0:
			report.Irregular++
		case delta > stepMillis:
			missing := delta/stepMillis - 1
			report.Gaps = append(report.Gaps, Gap{From: prev + stepMillis, To: cur - stepMillis, Count: missing})
		}
		present++
		prev = cur
	}
	report.Present = present
	return report
}
