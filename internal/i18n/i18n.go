// Package i18n holds the user-facing text of the assistant in every supported language.
package i18n

import "slices"

// Supported language codes.
const (
	Chinese = "zh"
	English = "en"
)

// Languages lists the supported languages in picker order.
var Languages = []string{Chinese, English}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	return slices.Contains(Languages, lang)
}

// Messages is one language catalog. Fields ending in a verb like %s or %d are
// fmt formats.
type Messages struct {
	LanguageName string
	Start        string
	Help         string
	LangSelect   string
	LangChanged  string
	BotJoined    string

	NotAuthorized      string
	GroupAdminRequired string
	PrivateOnly        string
	GenericError       string
	ErrorOccurred      string // %s error

	NoGroups           string
	GroupNotFound      string
	SelectAnalyze      string
	SelectSuggest      string
	SelectDelete       string
	SelectActionsMode  string
	ActionsTodayButton string
	ActionsPickButton  string
	SelectActionsGroup string
	Working            string // %s group
	GroupResult        string // %s group, %s content
	TooFewToAnalyze    string // %s group
	TooFewToSuggest    string // %s group
	NoGroupMessages    string // %s group

	TodayReportHeader string
	TodayReportEntry  string // %s group, %s content
	TodayReportFailed string // %s group
	TodayReportEmpty  string

	Deleted      string // %s group
	DeleteFailed string // %s group

	SetPromptSelect string
	PromptButton    map[string]string
	CurrentPrompt   string // %s prompt
	PromptCancelled string
	PromptUpdated   string
	NothingToCancel string

	SetCountUsage   string
	SetCountTooLow  string
	SetCountTooHigh string
	SetCountDone    string // %d count

	SetModelSelect string // %s current model
	ModelChanged   string // %s model
	UnknownModel   string // %s model

	ImportPrompt      string
	ImportWrongExt    string
	ImportDownloading string
	ImportInvalidJSON string
	ImportNoMessages  string
	ImportExisting    string // %s name, %d id, %d count
	ImportStarting    string // %s name, %d id
	ImportProgress    string // %d total, %d new
	ImportDone        string // %s name, %d total, %d new
	ImportFailed      string // %s error

	SyncStarted  string
	SyncProgress string // %s group, %d new
	SyncDone     string // %d groups, %d new
	SyncNothing  string
}

var zh = &Messages{
	LanguageName: "中文 🇨🇳",
	Start: "欢迎使用 TGAssist Bot！\n" +
		"我会自动记录群组消息，并根据聊天记录提供分析、待办事项和回复建议。\n" +
		"使用 /help 查看所有可用命令。\n" +
		"当前语言：中文 🇨🇳 (/lang 切换语言)",
	Help: "可用命令列表：\n" +
		"/start - 显示欢迎信息\n" +
		"/analyze - 分析群组历史消息\n" +
		"/actions - 检查待办事项（所有群组或特定群组）\n" +
		"/suggest - 获取回复建议\n" +
		"/sync - 同步最近消息\n" +
		"/import - 导入 Telegram 导出的 JSON 聊天记录\n" +
		"/delete - 删除群组记录\n" +
		"/setprompt - 设置提示词\n" +
		"/setcount - 设置建议回复使用的消息数量（默认5条）\n" +
		"/setmodel - 切换模型\n" +
		"/cancel - 取消当前操作\n" +
		"/lang - 切换语言",
	LangSelect:  "请选择语言 / Please select language:",
	LangChanged: "语言已切换为中文",
	BotJoined: "你好！我是群组助手。我会自动记录群组消息，你可以在私聊中使用以下命令：\n" +
		"/analyze - 分析群组历史\n" +
		"/actions - 检查今日待办\n" +
		"/suggest - 建议回复\n" +
		"/delete - 删除群组记录\n" +
		"/setprompt - 设置AI提示词",

	NotAuthorized:      "抱歉，您没有权限使用此机器人。",
	GroupAdminRequired: "抱歉，只有群组管理员才能使用此命令。",
	PrivateOnly:        "请在私聊中使用此命令。",
	GenericError:       "处理请求时出错，请稍后重试。",
	ErrorOccurred:      "发生错误：%s",

	NoGroups:           "未找到任何群组记录。",
	GroupNotFound:      "无法获取群组信息。",
	SelectAnalyze:      "请选择要分析的群组：",
	SelectSuggest:      "请选择要获取回复建议的群组：",
	SelectDelete:       "请选择要删除记录的群组：",
	SelectActionsMode:  "请选择待办事项查看方式：",
	ActionsTodayButton: "今日所有群组",
	ActionsPickButton:  "选择特定群组",
	SelectActionsGroup: "请选择要查看待办事项的群组：",
	Working:            "正在处理群组 %s ...",
	GroupResult:        "群组：%s\n\n%s",
	TooFewToAnalyze:    "群组 %s 的消息记录太少，无法进行分析。",
	TooFewToSuggest:    "群组 %s 的消息记录太少，无法提供建议。",
	NoGroupMessages:    "群组 %s 暂无消息记录。",

	TodayReportHeader: "今日各群组待办事项：",
	TodayReportEntry:  "\n%s：\n%s",
	TodayReportFailed: "\n%s：处理出错，请稍后重试",
	TodayReportEmpty:  "今日所有群组暂无待办事项。",

	Deleted:      "已成功删除群组 %s 的所有记录。",
	DeleteFailed: "群组 %s 没有可删除的记录。",

	SetPromptSelect: "请选择要设置提示词的功能：",
	PromptButton: map[string]string{
		"background": "分析群组历史",
		"actions":    "检查今日待办",
		"suggestion": "建议回复",
	},
	CurrentPrompt:   "当前的提示词是：\n\n%s\n\n请直接回复新的提示词，或者输入 /cancel 取消。",
	PromptCancelled: "已取消设置提示词。",
	PromptUpdated:   "提示词已更新。",
	NothingToCancel: "当前没有进行中的操作。",

	SetCountUsage:   "请指定要使用的消息数量，例如：\n/setcount 10\n默认值为5，最小值为2，最大值为50。",
	SetCountTooLow:  "消息数量必须大于等于2。",
	SetCountTooHigh: "消息数量不能超过50。",
	SetCountDone:    "已设置建议回复时使用最近 %d 条消息。",

	SetModelSelect: "当前使用的模型：%s\n请选择要使用的模型：",
	ModelChanged:   "已切换到模型：%s",
	UnknownModel:   "不支持的模型：%s",

	ImportPrompt:      "请发送 Telegram 导出的 JSON 聊天记录文件。",
	ImportWrongExt:    "请发送 .json 格式的文件。",
	ImportDownloading: "正在下载文件...",
	ImportInvalidJSON: "无法解析JSON文件，请确保文件格式正确。",
	ImportNoMessages:  "JSON文件格式不正确，找不到消息记录。",
	ImportExisting:    "检测到群组 %s (ID: %d) 已存在，当前有 %d 条消息。\n正在导入新消息...",
	ImportStarting:    "正在导入群组 %s (ID: %d) 的消息...",
	ImportProgress:    "正在导入消息...\n总消息数：%d\n新消息数：%d",
	ImportDone:        "导入完成！\n群组：%s\n总消息数：%d\n新消息数：%d",
	ImportFailed:      "导入JSON文件时出错：%s",

	SyncStarted:  "正在同步消息...",
	SyncProgress: "已同步群组 %s，新消息 %d 条...",
	SyncDone:     "同步完成！共 %d 个群组，同步了 %d 条新消息。",
	SyncNothing:  "未找到需要同步的消息。请确保我在群组中并且有足够的权限。",
}

var en = &Messages{
	LanguageName: "English 🇺🇸",
	Start: "Welcome to TGAssist Bot!\n" +
		"I archive your group messages and provide summaries, action items and reply suggestions.\n" +
		"Use /help to see all available commands.\n" +
		"Current language: English 🇺🇸 (/lang to change)",
	Help: "Available commands:\n" +
		"/start - Show welcome message\n" +
		"/analyze - Analyze group history\n" +
		"/actions - Check action items (all groups or one group)\n" +
		"/suggest - Get reply suggestions\n" +
		"/sync - Sync recent messages\n" +
		"/import - Import a Telegram JSON chat export\n" +
		"/delete - Delete group records\n" +
		"/setprompt - Set prompts\n" +
		"/setcount - Set how many messages suggestions use (default 5)\n" +
		"/setmodel - Switch model\n" +
		"/cancel - Cancel the current operation\n" +
		"/lang - Change language",
	LangSelect:  "Please select language / 请选择语言:",
	LangChanged: "Language changed to English",
	BotJoined: "Hello! I'm the group assistant. I archive group messages; use these commands in a private chat with me:\n" +
		"/analyze - Analyze group history\n" +
		"/actions - Check today's action items\n" +
		"/suggest - Suggest a reply\n" +
		"/delete - Delete group records\n" +
		"/setprompt - Set AI prompts",

	NotAuthorized:      "Sorry, you are not allowed to use this bot.",
	GroupAdminRequired: "Sorry, only group administrators can use this command.",
	PrivateOnly:        "Please use this command in a private chat.",
	GenericError:       "Something went wrong, please try again later.",
	ErrorOccurred:      "Error occurred: %s",

	NoGroups:           "No group records found.",
	GroupNotFound:      "Could not find the group.",
	SelectAnalyze:      "Select a group to analyze:",
	SelectSuggest:      "Select a group to get a reply suggestion for:",
	SelectDelete:       "Select a group to delete records of:",
	SelectActionsMode:  "How do you want to view action items?",
	ActionsTodayButton: "Today, all groups",
	ActionsPickButton:  "Pick a group",
	SelectActionsGroup: "Select a group to view action items for:",
	Working:            "Working on group %s ...",
	GroupResult:        "Group: %s\n\n%s",
	TooFewToAnalyze:    "Group %s has too few messages to analyze.",
	TooFewToSuggest:    "Group %s has too few messages for a suggestion.",
	NoGroupMessages:    "Group %s has no messages yet.",

	TodayReportHeader: "Today's action items by group:",
	TodayReportEntry:  "\n%s:\n%s",
	TodayReportFailed: "\n%s: processing failed, please retry later",
	TodayReportEmpty:  "No action items in any group today.",

	Deleted:      "Deleted all records of group %s.",
	DeleteFailed: "Group %s has no records to delete.",

	SetPromptSelect: "Select which prompt to set:",
	PromptButton: map[string]string{
		"background": "Group history analysis",
		"actions":    "Today's action items",
		"suggestion": "Reply suggestion",
	},
	CurrentPrompt:   "The current prompt is:\n\n%s\n\nReply with the new prompt, or send /cancel to abort.",
	PromptCancelled: "Prompt update cancelled.",
	PromptUpdated:   "Prompt updated.",
	NothingToCancel: "Nothing to cancel.",

	SetCountUsage:   "Please specify how many messages to use, e.g.:\n/setcount 10\nDefault is 5, minimum 2, maximum 50.",
	SetCountTooLow:  "The message count must be at least 2.",
	SetCountTooHigh: "The message count cannot exceed 50.",
	SetCountDone:    "Reply suggestions will use the latest %d messages.",

	SetModelSelect: "Current model: %s\nSelect the model to use:",
	ModelChanged:   "Switched to model: %s",
	UnknownModel:   "Unsupported model: %s",

	ImportPrompt:      "Please send a Telegram JSON chat export file.",
	ImportWrongExt:    "Please send a .json file.",
	ImportDownloading: "Downloading file...",
	ImportInvalidJSON: "Could not parse the JSON file, please check its format.",
	ImportNoMessages:  "Invalid export: no messages found.",
	ImportExisting:    "Group %s (ID: %d) already exists with %d messages.\nImporting new messages...",
	ImportStarting:    "Importing messages of group %s (ID: %d)...",
	ImportProgress:    "Importing messages...\nTotal: %d\nNew: %d",
	ImportDone:        "Import finished!\nGroup: %s\nTotal: %d\nNew: %d",
	ImportFailed:      "Import failed: %s",

	SyncStarted:  "Syncing messages...",
	SyncProgress: "Synced group %s, %d new messages...",
	SyncDone:     "Sync finished! %d groups, %d new messages.",
	SyncNothing:  "No messages to sync. Make sure I am in your groups with enough permissions.",
}

var catalogs = map[string]*Messages{
	Chinese: zh,
	English: en,
}

// Lookup returns the catalog for lang, falling back to Chinese.
func Lookup(lang string) *Messages {
	if m, ok := catalogs[lang]; ok {
		return m
	}
	return zh
}
