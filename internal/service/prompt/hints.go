package prompt

// Policy text appended to generation requests and conversation prompts.
const (
	ScenarioDiversityHint = "请在设计谈判情境时兼顾制造业、服务业、数字贸易、农业、电子产品业、汽车业、文化创意产业等多元行业，" +
		"避免始终聚焦于一个产品、一个案例，使学生能够接触不同的外贸品类。"

	RoleEnforcementHint = "学生在本场景中必须明确扮演来自中国的买家或卖家，可根据任务设置选择进口商或出口商。" +
		"请确保 student_role 字段中包含‘中国’字样，并给出行业、职位描述。"

	JSONOutputHint = "请严格输出 JSON，键名采用 snake_case。"

	ConversationDiversityHint = "在与学生的每轮对话中，选择贴合场景的行业背景示例，可结合原材料、工业品、" +
		"生活消费品、服务解决方案等不同类型，刻意避免反复引用电子产品为例。"

	RoleConversationReminder = "请始终以学生为中国买家或中国卖家来组织对话，在回应中适时引用中国市场或供应链视角。"

	EnglishEnforcementHint = "All assistant-facing outputs, including scenario briefings and conversation replies, must be written entirely in English." +
		" Avoid inserting Chinese characters unless the student explicitly provides them or requests bilingual content."
)

// Default knowledge_points_hint values when the scenario carries none.
const (
	BargainingKnowledgeHint = "報盤結構, 議價策略, 跨文化溝通"
	WritingKnowledgeHint    = "英文商務函電寫作, 信息提取, 跨文化表達"
)
