package prompt

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownField is returned when a section asks for a field the catalog does not define.
var ErrUnknownField = errors.New("unknown scenario field")

// FieldSpec describes one scenario field as it appears in the generation skeleton.
type FieldSpec struct {
	Key   string
	Label string
	// Shape is the JSON fragment shown to the model, kept on a single line.
	Shape string
}

// baseFields are requested for every section, in skeleton order.
var baseFields = []FieldSpec{
	{Key: "scenario_title", Label: "场景标题", Shape: `"简短标题"`},
	{Key: "scenario_summary", Label: "场景摘要", Shape: `"1-2 句中文摘要，必要时辅以英文关键词"`},
	{Key: "student_role", Label: "学生角色", Shape: `"学生扮演的角色与职位"`},
	{Key: "student_company", Label: "学生方公司", Shape: `{"name": "公司名称", "profile": "公司背景与优势"}`},
	{Key: "ai_role", Label: "AI 角色", Shape: `"AI 扮演的角色与职位"`},
	{Key: "ai_company", Label: "AI 方公司", Shape: `{"name": "公司名称", "profile": "公司背景与优势"}`},
	{Key: "product", Label: "产品信息", Shape: `{"name": "产品名称", "specifications": "主要规格/品质标准", "quantity_requirement": "需求或供给数量", "price_expectation": {"student_target": "学生期望价格或条件", "ai_bottom_line": "AI 方可接受底线"}}`},
	{Key: "market_landscape", Label: "市场现况", Shape: `"目标市场现况（可中英混合）"`},
	{Key: "timeline", Label: "时程要求", Shape: `"交期或时程要求"`},
	{Key: "logistics", Label: "物流与贸易术语", Shape: `"物流/贸易术语关键点"`},
	{Key: "risks", Label: "风险提醒", Shape: `["至少 2 条风险提醒"]`},
	{Key: "negotiation_targets", Label: "谈判焦点", Shape: `["列出 3-5 条双方需讨论的焦点"]`},
	{Key: "communication_tone", Label: "沟通语气", Shape: `"整体语气与礼仪要求"`},
	{Key: "checklist", Label: "行动清单", Shape: `["列出学生在本关卡需完成的行动步骤"]`},
	{Key: "knowledge_points", Label: "知识点", Shape: `["对应该课程的核心知识点词条"]`},
	{Key: "opening_message", Label: "开场白", Shape: `"AI 进入场景后的首句开场白（中英结合）"`},
}

// extraFields may be requested per section type.
var extraFields = []FieldSpec{
	{Key: "ai_rules", Label: "AI 规则", Shape: `["AI 在对话中必须遵守的规则"]`},
	{Key: "contact_background", Label: "联系背景", Shape: `"双方此前的接触渠道与合作历史"`},
	{Key: "inquiry_focus", Label: "询盘焦点", Shape: `["学生需在询盘中重点确认的 2-3 项信息"]`},
	{Key: "inquiry_information_gaps", Label: "信息缺口", Shape: `["供应商回复中尚缺失或含糊的信息"]`},
	{Key: "pricing_positioning", Label: "定价定位", Shape: `"报价在目标市场中的定位与参照价格"`},
	{Key: "concession_levers", Label: "可协商让步", Shape: `["可用于交换的让步条件，如数量、付款、交期"]`},
	{Key: "value_add_options", Label: "增值方案", Shape: `["可附加的增值服务或赠品方案"]`},
	{Key: "counter_offer_background", Label: "上一轮报价背景", Shape: `"上一轮报盘/还盘的价格与条款概要"`},
	{Key: "negotiation_pressures", Label: "谈判压力", Shape: `["双方各自面临的时间、库存或竞争压力"]`},
	{Key: "document_snapshot", Label: "单据快照", Shape: `{"document_type": "单据类型", "key_terms": ["单据中列出的关键条款（可含刻意错误）"]}`},
	{Key: "compliance_red_flags", Label: "合规风险", Shape: `["单据或条款中隐藏的合规与风险点"]`},
	{Key: "contract_risk_scope", Label: "合同风险范围", Shape: `["需重点核查的合同条款范围"]`},
	{Key: "payment_terms_matrix", Label: "付款条款矩阵", Shape: `[{"method": "付款方式", "ratio": "比例与时点", "risk": "风险说明"}]`},
	{Key: "cash_flow_constraints", Label: "现金流约束", Shape: `["学生方的现金流或融资限制"]`},
	{Key: "payment_risk_alerts", Label: "付款风险提示", Shape: `["与付款方式相关的风险提醒"]`},
	{Key: "receivables_status", Label: "应收账款状态", Shape: `"尾款金额、逾期天数与当前状态"`},
	{Key: "collection_history", Label: "催收历史", Shape: `["已采取的催收动作与对方回应"]`},
	{Key: "escalation_options", Label: "升级措施", Shape: `["可采取的升级手段，如暂停发货、信保索赔、法律途径"]`},
	{Key: "packaging_snapshot", Label: "包装方案", Shape: `"当前包装方式、规格与材质"`},
	{Key: "shipping_mark_gaps", Label: "唛头缺失", Shape: `["唛头或标签中缺失、错误的信息"]`},
	{Key: "logistics_constraints", Label: "物流限制", Shape: `["港口、舱位、清关等物流限制"]`},
	{Key: "transport_plan", Label: "运输方案", Shape: `"运输方式、路线与转运安排"`},
	{Key: "incoterms_focus", Label: "贸易术语关注点", Shape: `"本场景涉及的贸易术语（FOB/CIF/EXW 等）及其责任划分"`},
	{Key: "cost_structure_hint", Label: "成本结构提示", Shape: `"影响报价的主要成本构成"`},
	{Key: "operation_timeline", Label: "操作时间线", Shape: `["按时间顺序列出的关键履约节点"]`},
	{Key: "stakeholder_matrix", Label: "干系人矩阵", Shape: `[{"party": "相关方", "interest": "关注点"}]`},
	{Key: "contingency_preplans", Label: "应急预案", Shape: `["可能启用的应急方案"]`},
	{Key: "documentation_control", Label: "单证管控", Shape: `["需同步核对的单证清单"]`},
	{Key: "inspection_agency_options", Label: "检验机构选项", Shape: `["可选的第三方检验机构及其特点"]`},
	{Key: "inspection_dispute_facts", Label: "检验争议事实", Shape: `"检验结果争议的事实经过与证据"`},
	{Key: "arbitration_clause_focus", Label: "仲裁条款要点", Shape: `["仲裁地、机构、规则、语言、适用法等需讨论的要点"]`},
	{Key: "insurance_coverage_options", Label: "保险险别选项", Shape: `["可选的险别、保险金额与免赔额建议"]`},
	{Key: "claim_evidence", Label: "索赔证据", Shape: `["索赔所需或已掌握的证据材料"]`},
	{Key: "customer_emotion_profile", Label: "客户情绪画像", Shape: `"对方情绪状态与主要诉求"`},
	{Key: "relationship_history", Label: "合作关系历史", Shape: `"双方合作年限、订单规模与信任基础"`},
	{Key: "custom_variables", Label: "特色变量", Shape: `{"变量名": "教师自定义的补充信息"}`},
}

var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]FieldSpec {
	idx := make(map[string]FieldSpec, len(baseFields)+len(extraFields))
	for _, f := range baseFields {
		idx[f.Key] = f
	}
	for _, f := range extraFields {
		idx[f.Key] = f
	}
	// camelCase alias used by older API payloads
	idx["customVariables"] = idx["custom_variables"]
	return idx
}

// LookupField returns the catalog entry for key.
func LookupField(key string) (FieldSpec, bool) {
	f, ok := fieldIndex[key]
	return f, ok
}

// BaseFields returns the fields every generation request asks for.
func BaseFields() []FieldSpec {
	out := make([]FieldSpec, len(baseFields))
	copy(out, baseFields)
	return out
}

// FieldLabel returns the display label for a scenario key. Keys outside the
// catalog are title-cased with underscores turned into spaces.
func FieldLabel(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "附加信息"
	}
	if f, ok := fieldIndex[key]; ok {
		return f.Label
	}
	// Casers keep state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// ResolveFields returns the base fields followed by the requested extras in
// caller order. Repeated keys, and extras that duplicate a base field, are dropped.
func ResolveFields(extraKeys []string) ([]FieldSpec, error) {
	fields := BaseFields()
	seen := make(map[string]struct{}, len(fields)+len(extraKeys))
	for _, f := range fields {
		seen[f.Key] = struct{}{}
	}
	for _, key := range extraKeys {
		key = strings.TrimSpace(key)
		if _, dup := seen[key]; dup {
			continue
		}
		f, ok := fieldIndex[key]
		if !ok || key == "customVariables" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
		seen[key] = struct{}{}
		fields = append(fields, f)
	}
	return fields, nil
}
