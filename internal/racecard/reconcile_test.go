package racecard

import "testing"

func TestReconcileDrawFromTrainer(t *testing.T) {
	raw := map[Field]string{
		FieldDraw:    "",
		FieldTrainer: "7",
	}
	reconcile(raw)
	if raw[FieldDraw] != "7" {
		t.Fatalf("練馬師欄的小整數應移入檔位: %q", raw[FieldDraw])
	}
	if raw[FieldTrainer] != "" {
		t.Fatalf("移動後練馬師欄應清空: %q", raw[FieldTrainer])
	}
}

func TestReconcileTrainerFromDraw(t *testing.T) {
	raw := map[Field]string{
		FieldDraw:    "呂健威",
		FieldTrainer: "",
	}
	reconcile(raw)
	if raw[FieldTrainer] != "呂健威" {
		t.Fatalf("檔位欄的文字應移入練馬師: %q", raw[FieldTrainer])
	}
	if raw[FieldDraw] != "" {
		t.Fatalf("移動後檔位欄應清空: %q", raw[FieldDraw])
	}
}

func TestReconcileRulesMutuallyExclusive(t *testing.T) {
	// 檔位修正先行, 完成後練馬師已非空, 第二條規則不再適用。
	raw := map[Field]string{
		FieldDraw:    "",
		FieldTrainer: "12",
	}
	reconcile(raw)
	if raw[FieldDraw] != "12" || raw[FieldTrainer] != "" {
		t.Fatalf("修正結果不正確: draw=%q trainer=%q", raw[FieldDraw], raw[FieldTrainer])
	}
}

func TestReconcileLeavesValidColumns(t *testing.T) {
	raw := map[Field]string{
		FieldDraw:    "7",
		FieldTrainer: "呂健威",
	}
	reconcile(raw)
	if raw[FieldDraw] != "7" || raw[FieldTrainer] != "呂健威" {
		t.Fatalf("正常欄位不應被改動: draw=%q trainer=%q", raw[FieldDraw], raw[FieldTrainer])
	}
}

func TestReconcileTrainerOutOfRange(t *testing.T) {
	raw := map[Field]string{
		FieldDraw:    "",
		FieldTrainer: "55",
	}
	reconcile(raw)
	if raw[FieldDraw] != "" || raw[FieldTrainer] != "55" {
		t.Fatalf("超出檔位範圍的數字不應移動: draw=%q trainer=%q", raw[FieldDraw], raw[FieldTrainer])
	}
}

func TestReconcileNameSanity(t *testing.T) {
	raw := map[Field]string{FieldHorseName: "設定我的排位表"}
	reconcile(raw)
	if raw[FieldHorseName] != "" {
		t.Fatalf("控制面板文字不應留在馬名欄: %q", raw[FieldHorseName])
	}

	raw = map[Field]string{FieldHorseName: "123"}
	reconcile(raw)
	if raw[FieldHorseName] != "" {
		t.Fatalf("純數字不應留在馬名欄: %q", raw[FieldHorseName])
	}

	raw = map[Field]string{FieldHorseName: "金鎗六十"}
	reconcile(raw)
	if raw[FieldHorseName] != "金鎗六十" {
		t.Fatalf("正常馬名不應被清空: %q", raw[FieldHorseName])
	}
}
