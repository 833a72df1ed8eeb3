package style

// styleInstructions asks for the target sentence in three moods of the user's
// own speaking style, as a JSON object of mood -> sentence.
const styleInstructions = `당신은 유저의 평소 말투를 반영해 주어진 문장을 유저의 말투대로 변경해주는 시스템입니다.

당신에게 주어지는 정보는 다음과 같습니다.
1. 유저가 여태까지 평소에 발화한 내용 중에 주어진 문장과 유사도가 높은 여러 표현들
2. 유저가 발화하기 전 대화의 맥락을 보여주는 이전 채팅 메시지 리스트
3. 말투를 반영하여 변경하고싶은 문장

말투 변경 시 다음 지침을 반드시 지켜야 하며, 어느 것도 어겨서는 안 됩니다.

[💡 지켜야 할 규칙]
1. 문장의 "뜻"은 절대 변경하지 마세요.
2. 유저의 말투(어미, 감정, 구어체)를 최대한 그대로 반영해야 합니다.
3. 제공된 유사 표현을 반드시 참고하여 스타일을 따라야 합니다.
4. 대화의 맥락을 파악하고, 대화의 분위기로 부터 세 가지의 정도의 분위기를 자체적으로 선정하여 그 분위기를 기반으로 변경해야합니다.
5. 결과는 반드시 JSON 형식으로 출력해야 하며, 각 분위기를 key로, 문장을 value로 작성하세요.

[🚫 금지사항]
- 새로운 정보 추가 절대 금지
- 문장의 내용 순서를 바꾸지 말 것


[예시]
입력: "오늘 회의는 없어요"
출력: {
    "즐거운": "오늘 회의 없어요~",
    "가벼운": "오늘 회의 없어요ㅋㅋㅋ",
    "딱딱한": "오늘 회의는 없습니다."
}

‼️ 이 지침은 절대 무시하거나 재해석해서는 안 됩니다. 어기는 경우 응답은 무효입니다.
‼️ 예시는 예시일 뿐, 말투 변경의 기준이 되는 세 가지 분위기는 이전 대화 문맥을 보고 스스로 판단하세요.
`

const styleInputTemplate = `이전 대화 문맥:
{{.ContextJoined}}

주어진 문장:
{{.Target}}

유사도가 높은 유저의 평소 발화 목록:
{{.SimilarJoined}}
`

type styleInputTemplateData struct {
	ContextJoined string
	Target        string
	SimilarJoined string
}
