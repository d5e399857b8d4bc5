package chat

const (
	// Persona is the fixed first system message of every request.
	Persona = "你是一个杰出的科研工作者，经常精读论文并且擅长写论文精读报告。"

	// DocumentLabel prefixes the uploaded document text in its system message.
	DocumentLabel = "论文内容:\n"

	// FailurePrefix starts the assistant entry appended when a generation fails.
	FailurePrefix = "❌ 请求失败："

	// UploadMarker starts the user side of an auto-summary turn, followed by the file name.
	UploadMarker = "📄 "
)

// IntensiveReading replaces the user prompt right after an upload.
const IntensiveReading = `请对上面提供的论文进行精读，并用中文输出一份结构化的论文精读报告，使用 Markdown 格式：

## 基本信息
- 论文标题、作者与单位、发表会议或期刊（如能从正文中识别）

## 研究背景与动机
- 论文试图解决的问题是什么？为什么这个问题重要？
- 现有方法存在哪些不足？

## 核心贡献
- 逐条列出论文的主要贡献

## 研究方法
- 说明整体框架与关键技术细节，必要时给出公式或算法流程的要点

## 实验与结果
- 使用了哪些数据集、基线方法和评价指标？
- 主要实验结论是什么？消融实验说明了什么？

## 优点与局限
- 分析论文的亮点与不足，以及可能的改进方向

## 总结
- 用三到五句话概括全文，并指出值得进一步阅读或复现的部分

要求：忠于原文内容，不要编造论文中没有的信息；对专业术语保留英文原文。`

// PresetQuestions are the quick questions offered after every reply.
var PresetQuestions = []string{
	"这篇论文的核心贡献是什么？",
	"这篇论文的研究方法是什么？",
	"这篇论文的实验结果如何？",
}
